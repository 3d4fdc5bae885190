// pdf-merger - splice and normalize the page sequence of PDF files
// Copyright (C) 2026  The pdf-merger authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdfmerger

import (
	"fmt"
	"log"
	"os"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"
)

// Options controls optional behaviour of [Insert].
type Options struct {
	// Warn is called with diagnostic messages about document
	// structure which is missing or cannot be carried over into the
	// merged document.  If Warn is nil, messages go to the standard
	// logger.
	Warn func(msg string)
}

func (opt *Options) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if opt != nil && opt.Warn != nil {
		opt.Warn(msg)
		return
	}
	log.Print(msg)
}

// Insert splices the pages of the file srcPath into the file dstPath.
//
// The slice after lists zero-based destination page indices.  A full
// copy of the source page sequence is inserted after each listed page,
// so for a destination with d pages, a source with s pages and k
// insertion points the merged document has d + k*s pages.  The list
// must be strictly ascending and every index must refer to an existing
// destination page.
//
// On success the file at dstPath is overwritten with the merged
// document.  If either input has no usable document catalog or page
// tree, a diagnostic is emitted and Insert returns nil without
// touching the destination file.  Document outlines are not carried
// over into the merged document.
func Insert(dstPath string, after []int, srcPath string, opt *Options) error {
	dst, err := readFile(dstPath)
	if err != nil {
		return err
	}
	src, err := readFile(srcPath)
	if err != nil {
		return err
	}

	merged, err := merge(dst, src, after, opt)
	if err != nil || merged == nil {
		return err
	}

	return writeFile(merged, dstPath)
}

// pageCopy describes one page of the merged document: the input page
// it is copied from, and the copier of the document the page belongs
// to.
type pageCopy struct {
	c   *copier
	old pdf.Reference
}

// merge builds the merged document in memory.  A nil document without
// an error indicates that one of the inputs has no usable document
// structure and the merge was abandoned.
func merge(dst, src *pdf.Data, after []int, opt *Options) (*pdf.Data, error) {
	dstCat := dst.GetMeta().Catalog
	srcCat := src.GetMeta().Catalog
	if dstCat == nil || srcCat == nil {
		opt.warn("Catalog root not found.")
		return nil, nil
	}

	dstRootRef, dstRootDict, err := pagesRoot(dst)
	if err != nil {
		return nil, err
	}
	srcRootRef, srcRootDict, err := pagesRoot(src)
	if err != nil {
		return nil, err
	}
	if dstRootDict == nil || srcRootDict == nil {
		opt.warn("Pages root not found.")
		return nil, nil
	}

	dstPages, err := pagetree.FindPages(dst)
	if err != nil {
		return nil, &StructureError{Msg: "destination page tree", Err: err}
	}
	srcPages, err := pagetree.FindPages(src)
	if err != nil {
		return nil, &StructureError{Msg: "source page tree", Err: err}
	}

	err = checkInsertionPoints(after, len(dstPages))
	if err != nil {
		return nil, err
	}

	total := len(dstPages) + len(after)*len(srcPages)

	v := dst.GetMeta().Version
	if srcVer := src.GetMeta().Version; srcVer > v {
		v = srcVer
	}
	out := pdf.NewData(v)

	cDst := newCopier(out, dst)
	cSrc := newCopier(out, src)

	// The merged page sequence: destination pages in order, with one
	// occurrence of the full source page sequence spliced in after
	// each insertion point.
	seq := make([]pageCopy, 0, total)
	k := 0
	for i, ref := range dstPages {
		seq = append(seq, pageCopy{cDst, ref})
		if k < len(after) && after[k] == i {
			for _, sref := range srcPages {
				seq = append(seq, pageCopy{cSrc, sref})
			}
			k++
		}
	}
	if len(seq) != total {
		return nil, &StructureError{
			Msg: fmt.Sprintf("expected %d pages in the merged document, found %d", total, len(seq)),
		}
	}

	// Reserve the low end of the output ID space for the pages, in
	// their final order, followed by the page tree root.
	pageRefs := make([]pdf.Reference, total)
	for pos := range pageRefs {
		pageRefs[pos] = out.Alloc()
	}
	rootRef := out.Alloc()

	// References into the page sequence must resolve to the new page
	// objects.  A source page inserted more than once resolves to its
	// first occurrence.  The old page tree roots are never copied.
	for pos, p := range seq {
		p.c.redirect(p.old, pageRefs[pos])
	}
	cDst.redirect(dstRootRef, rootRef)
	cSrc.redirect(srcRootRef, rootRef)

	// Copy the pages.  Every occurrence gets its own page object, but
	// all indirect objects referenced from the pages (fonts, images,
	// content streams) are shared between occurrences through the
	// translation tables.
	for pos, p := range seq {
		dict, err := pdf.GetDict(p.c.r, p.old)
		if err != nil {
			return nil, err
		}
		if dict == nil {
			return nil, &StructureError{
				Msg: fmt.Sprintf("page %d is not a dictionary", pos),
			}
		}
		newDict := pdf.Dict{}
		for key, val := range dict {
			if key == "Parent" {
				continue
			}
			repl, err := p.c.copy(val)
			if err != nil {
				return nil, err
			}
			newDict[key] = repl
		}
		newDict["Parent"] = rootRef
		err = out.Put(pageRefs[pos], newDict)
		if err != nil {
			return nil, err
		}
	}

	dstNodes, err := pagesDicts(dst, dstRootRef)
	if err != nil {
		return nil, &StructureError{Msg: "destination page tree", Err: err}
	}
	srcNodes, err := pagesDicts(src, srcRootRef)
	if err != nil {
		return nil, &StructureError{Msg: "source page tree", Err: err}
	}
	rootDict, err := mergePagesDicts(cDst, dstNodes, cSrc, srcNodes)
	if err != nil {
		return nil, err
	}
	kids := make(pdf.Array, total)
	for pos, ref := range pageRefs {
		kids[pos] = ref
	}
	rootDict["Kids"] = kids
	rootDict["Count"] = pdf.Integer(total)
	err = out.Put(rootRef, rootDict)
	if err != nil {
		return nil, err
	}

	if dstCat.Outlines != 0 || srcCat.Outlines != 0 {
		opt.warn("Outlines are not supported in merged documents, dropping them.")
	}

	catalog, err := mergedCatalog(cDst, dstCat, rootRef)
	if err != nil {
		return nil, err
	}
	out.GetMeta().Catalog = catalog
	out.GetMeta().Info = dst.GetMeta().Info

	return out, nil
}

// pagesRoot locates the root of a document's page tree.  A nil
// dictionary without an error indicates that the document has no
// usable page tree root: the catalog has no Pages entry, or the entry
// does not lead to a dictionary of type Pages.
func pagesRoot(doc *pdf.Data) (pdf.Reference, pdf.Dict, error) {
	catalog := doc.GetMeta().Catalog
	if catalog.Pages == 0 {
		return 0, nil, nil
	}
	dict, err := pdf.GetDict(doc, catalog.Pages)
	if err != nil {
		return 0, nil, &StructureError{Msg: "page tree root", Err: err}
	}
	if dict == nil {
		return 0, nil, nil
	}
	tp, err := pdf.GetName(doc, dict["Type"])
	if err != nil || tp != "Pages" {
		return 0, nil, nil
	}
	return catalog.Pages, dict, nil
}

// pagesDicts returns every page tree node dictionary of the tree
// rooted at rootRef, in depth-first traversal order starting with the
// root itself.  Leaf pages are not included.
func pagesDicts(doc *pdf.Data, rootRef pdf.Reference) ([]pdf.Dict, error) {
	var res []pdf.Dict
	todo := []pdf.Reference{rootRef}
	seen := map[pdf.Reference]bool{
		rootRef: true,
	}
	for len(todo) > 0 {
		k := len(todo) - 1
		ref := todo[k]
		todo = todo[:k]

		node, err := pdf.GetDict(doc, ref)
		if err != nil {
			return nil, err
		}
		tp, err := pdf.GetName(doc, node["Type"])
		if err != nil {
			return nil, err
		}
		if tp != "Pages" {
			continue
		}
		res = append(res, node)

		kids, err := pdf.GetArray(doc, node["Kids"])
		if err != nil {
			return nil, err
		}
		for i := len(kids) - 1; i >= 0; i-- {
			if kidRef, ok := kids[i].(pdf.Reference); ok && !seen[kidRef] {
				todo = append(todo, kidRef)
				seen[kidRef] = true
			}
		}
	}
	return res, nil
}

func checkInsertionPoints(after []int, numPages int) error {
	prev := -1
	for _, pos := range after {
		if pos < 0 || pos >= numPages {
			return &ArgumentError{
				Msg: fmt.Sprintf("insertion point %d out of range (document has %d pages)",
					pos, numPages),
			}
		}
		if pos <= prev {
			return &ArgumentError{
				Msg: fmt.Sprintf("insertion points must be strictly ascending (%d after %d)",
					pos, prev),
			}
		}
		prev = pos
	}
	return nil
}

// mergePagesDicts combines the page tree node dictionaries of the two
// input documents into the single root of the merged tree.  The nodes
// are folded in traversal order, destination first, and on key
// collision the dictionary encountered first wins.  Kids, Count and
// Parent are never carried over, they are rebuilt by the caller for
// the merged tree.
func mergePagesDicts(cDst *copier, dstNodes []pdf.Dict, cSrc *copier, srcNodes []pdf.Dict) (pdf.Dict, error) {
	res := pdf.Dict{
		"Type": pdf.Name("Pages"),
	}
	inputs := []struct {
		c     *copier
		nodes []pdf.Dict
	}{
		{cDst, dstNodes},
		{cSrc, srcNodes},
	}
	for _, in := range inputs {
		for _, node := range in.nodes {
			for key, val := range node {
				switch key {
				case "Type", "Kids", "Count", "Parent":
					continue
				}
				if _, ok := res[key]; ok {
					continue
				}
				repl, err := in.c.copy(val)
				if err != nil {
					return nil, err
				}
				res[key] = repl
			}
		}
	}
	return res, nil
}

// mergedCatalog builds the catalog of the merged document from the
// destination catalog.  All entries except the page tree root are
// copied over; the outline tree is dropped.
func mergedCatalog(c *copier, cat *pdf.Catalog, rootRef pdf.Reference) (*pdf.Catalog, error) {
	catDict := pdf.AsDict(cat)
	newDict := pdf.Dict{}
	for key, val := range catDict {
		switch key {
		case "Pages", "Outlines":
			continue
		}
		repl, err := c.copy(val)
		if err != nil {
			return nil, err
		}
		newDict[key] = repl
	}
	newDict["Pages"] = rootRef

	res := &pdf.Catalog{}
	err := pdf.DecodeDict(c.w, res, newDict)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func readFile(fname string) (*pdf.Data, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := pdf.Read(f, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return doc, nil
}

func writeFile(doc *pdf.Data, fname string) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	err = doc.Write(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", fname, err)
	}
	return f.Close()
}
