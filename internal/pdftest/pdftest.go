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

// Package pdftest creates small PDF files for use in unit tests, and
// inspects the files the tests produce.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"testing"

	"golang.org/x/exp/maps"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"
)

// Marker is the dictionary key used to tag objects in test documents,
// so that tests can recognise the objects after a merge.
const Marker pdf.Name = "TestMarker"

// Doc describes a test document.
type Doc struct {
	// NumPages is the number of pages of the document.
	NumPages int

	// Label is the prefix for the page markers.  Page i carries the
	// marker "<Label>-<i>".
	Label string

	// Nested moves all pages except the first into an intermediate
	// page tree node, so that the page tree has more than one level.
	Nested bool

	// Outlines attaches a document outline to the catalog.
	Outlines bool

	// Root lists extra entries for the page tree root dictionary.
	Root pdf.Dict

	// Inner lists extra entries for the intermediate page tree node.
	// It is only used together with Nested.
	Inner pdf.Dict

	// Shared gives every page a reference to one shared dictionary,
	// tagged with the marker "<Label>-shared".
	Shared bool
}

// WriteFile writes the document described by d to the file fname.
func (d *Doc) WriteFile(t *testing.T, fname string) {
	t.Helper()

	buf := &bytes.Buffer{}
	w, err := pdf.NewWriter(buf, pdf.V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}

	rootRef := w.Alloc()

	var sharedRef pdf.Reference
	if d.Shared {
		sharedRef = w.Alloc()
		err = w.Put(sharedRef, pdf.Dict{
			Marker: pdf.TextString(d.Label + "-shared"),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	pageRefs := make([]pdf.Reference, d.NumPages)
	for i := range pageRefs {
		pageRefs[i] = w.Alloc()
	}

	var innerRef pdf.Reference
	nested := d.Nested && d.NumPages > 1
	if nested {
		innerRef = w.Alloc()
	}

	for i, ref := range pageRefs {
		parent := rootRef
		if nested && i > 0 {
			parent = innerRef
		}
		page := pdf.Dict{
			"Type":   pdf.Name("Page"),
			"Parent": parent,
			"MediaBox": pdf.Array{
				pdf.Integer(0), pdf.Integer(0), pdf.Integer(595), pdf.Integer(842),
			},
			Marker: pdf.TextString(fmt.Sprintf("%s-%d", d.Label, i)),
		}
		if d.Shared {
			page["TestShared"] = sharedRef
		}
		err = w.Put(ref, page)
		if err != nil {
			t.Fatal(err)
		}
	}

	var rootKids pdf.Array
	if nested {
		innerKids := pdf.Array{}
		for _, ref := range pageRefs[1:] {
			innerKids = append(innerKids, ref)
		}
		innerDict := pdf.Dict{
			"Type":   pdf.Name("Pages"),
			"Parent": rootRef,
			"Kids":   innerKids,
			"Count":  pdf.Integer(d.NumPages - 1),
		}
		for key, val := range d.Inner {
			innerDict[key] = val
		}
		err = w.Put(innerRef, innerDict)
		if err != nil {
			t.Fatal(err)
		}
		rootKids = pdf.Array{pageRefs[0], innerRef}
	} else {
		for _, ref := range pageRefs {
			rootKids = append(rootKids, ref)
		}
	}

	rootDict := pdf.Dict{
		"Type":  pdf.Name("Pages"),
		"Kids":  rootKids,
		"Count": pdf.Integer(d.NumPages),
	}
	for key, val := range d.Root {
		rootDict[key] = val
	}
	err = w.Put(rootRef, rootDict)
	if err != nil {
		t.Fatal(err)
	}

	w.GetMeta().Catalog.Pages = rootRef

	if d.Outlines {
		outRef := w.Alloc()
		err = w.Put(outRef, pdf.Dict{
			"Type":  pdf.Name("Outlines"),
			"Count": pdf.Integer(0),
		})
		if err != nil {
			t.Fatal(err)
		}
		w.GetMeta().Catalog.Outlines = outRef
	}

	err = w.Close()
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(fname, buf.Bytes(), 0o666)
	if err != nil {
		t.Fatal(err)
	}
}

// PageMarkers returns the marker of every page of the file fname, in
// page order.  Pages without a marker yield an empty string.
func PageMarkers(t *testing.T, fname string) []string {
	t.Helper()

	r, err := pdf.Open(fname, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	refs, err := pagetree.FindPages(r)
	if err != nil {
		t.Fatal(err)
	}

	res := make([]string, len(refs))
	for i, ref := range refs {
		dict, err := pdf.GetDict(r, ref)
		if err != nil {
			t.Fatal(err)
		}
		m, err := pdf.GetString(r, dict[Marker])
		if err != nil {
			t.Fatal(err)
		}
		res[i] = m.AsTextString()
	}
	return res
}

// MarkerCounts walks all objects reachable from the document catalog
// of the file fname and returns, for each marker string, the number of
// distinct dictionaries carrying it.
func MarkerCounts(t *testing.T, fname string) map[string]int {
	t.Helper()

	res := make(map[string]int)
	walkFile(t, fname, func(dict pdf.Dict, r pdf.Getter) {
		m, err := pdf.GetString(r, dict[Marker])
		if err != nil {
			t.Fatal(err)
		}
		if len(m) > 0 {
			res[m.AsTextString()]++
		}
	})
	return res
}

// HasObjectType reports whether any dictionary reachable from the
// document catalog of the file fname has the given Type entry.
func HasObjectType(t *testing.T, fname string, tp pdf.Name) bool {
	t.Helper()

	found := false
	walkFile(t, fname, func(dict pdf.Dict, r pdf.Getter) {
		if dict["Type"] == tp {
			found = true
		}
	})
	return found
}

func walkFile(t *testing.T, fname string, visit func(dict pdf.Dict, r pdf.Getter)) {
	t.Helper()

	r, err := pdf.Open(fname, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	w := &walker{
		r:     r,
		seen:  make(map[pdf.Reference]bool),
		visit: visit,
	}
	w.walk(t, pdf.AsDict(r.GetMeta().Catalog))
}

type walker struct {
	r     pdf.Getter
	seen  map[pdf.Reference]bool
	visit func(dict pdf.Dict, r pdf.Getter)
}

func (w *walker) walk(t *testing.T, obj pdf.Object) {
	switch x := obj.(type) {
	case pdf.Dict:
		w.visit(x, w.r)
		keys := maps.Keys(x)
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, key := range keys {
			if key == "Parent" {
				continue
			}
			w.walk(t, x[key])
		}
	case pdf.Array:
		for _, val := range x {
			w.walk(t, val)
		}
	case *pdf.Stream:
		w.walk(t, x.Dict)
	case pdf.Reference:
		if w.seen[x] {
			return
		}
		w.seen[x] = true
		val, err := pdf.Resolve(w.r, x)
		if err != nil {
			t.Fatal(err)
		}
		w.walk(t, val)
	}
}
