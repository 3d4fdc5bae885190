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
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"
)

// CountPages returns the number of pages in the PDF file fname.
func CountPages(fname string) (int, error) {
	r, err := pdf.Open(fname, nil)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	refs, err := pagetree.FindPages(r)
	if err != nil {
		return 0, &StructureError{Msg: fname, Err: err}
	}
	return len(refs), nil
}

// MakePageCountEven appends one empty page to the PDF file fname if
// the file has an odd number of pages.  This is useful before merging
// documents which are meant to be printed double-sided.
//
// If the page count is already even the file is left untouched.
// Otherwise the new page is linked into the root of the page tree and
// the file is rewritten in place.
func MakePageCountEven(fname string) error {
	doc, err := readFile(fname)
	if err != nil {
		return err
	}

	pages, err := pagetree.FindPages(doc)
	if err != nil {
		return &StructureError{Msg: "page tree", Err: err}
	}
	if len(pages)%2 == 0 {
		return nil
	}

	catalog := doc.GetMeta().Catalog
	if catalog == nil || catalog.Pages == 0 {
		return &StructureError{Msg: "Pages root not found"}
	}
	rootDict, err := pdf.GetDict(doc, catalog.Pages)
	if err != nil || rootDict == nil {
		return &StructureError{Msg: "Pages root not found", Err: err}
	}
	kids, err := pdf.GetArray(doc, rootDict["Kids"])
	if err != nil || kids == nil {
		return &StructureError{Msg: "page tree root has no Kids array", Err: err}
	}
	count, err := pdf.GetInteger(doc, rootDict["Count"])
	if err != nil {
		return &StructureError{Msg: "page tree root has no page count", Err: err}
	}

	pageRef := doc.Alloc()
	err = doc.Put(pageRef, pdf.Dict{
		"Type":   pdf.Name("Page"),
		"Parent": catalog.Pages,
	})
	if err != nil {
		return err
	}

	rootDict["Kids"] = append(kids, pageRef)
	rootDict["Count"] = count + 1

	// Put refuses to overwrite an existing object, so the old root
	// must be removed before the updated one can be stored.
	err = doc.Put(catalog.Pages, nil)
	if err != nil {
		return err
	}
	err = doc.Put(catalog.Pages, rootDict)
	if err != nil {
		return err
	}

	return writeFile(doc, fname)
}
