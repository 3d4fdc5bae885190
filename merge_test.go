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

package pdfmerger_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/pdf"

	pdfmerger "github.com/Tschet1/pdf-merger"
	"github.com/Tschet1/pdf-merger/internal/pdftest"
)

// expectedOrder computes the page sequence required by the merge
// ordering law: the destination pages in order, with the full source
// sequence spliced in after each insertion point.
func expectedOrder(dst, src []string, after []int) []string {
	var res []string
	k := 0
	for i, m := range dst {
		res = append(res, m)
		if k < len(after) && after[k] == i {
			res = append(res, src...)
			k++
		}
	}
	return res
}

func writeInputs(t *testing.T, dst, src *pdftest.Doc) (dstPath, srcPath string) {
	t.Helper()
	dir := t.TempDir()
	dstPath = filepath.Join(dir, "dst.pdf")
	srcPath = filepath.Join(dir, "src.pdf")
	dst.WriteFile(t, dstPath)
	src.WriteFile(t, srcPath)
	return dstPath, srcPath
}

func TestInsertPageCount(t *testing.T) {
	// the reference scenario: 9 destination pages, 2 source pages,
	// 5 insertion points
	dstPath, srcPath := writeInputs(t,
		&pdftest.Doc{NumPages: 9, Label: "dst"},
		&pdftest.Doc{NumPages: 2, Label: "src"})
	after := []int{0, 1, 2, 4, 8}

	srcBefore, err := os.ReadFile(srcPath)
	if err != nil {
		t.Fatal(err)
	}

	err = pdfmerger.Insert(dstPath, after, srcPath, nil)
	if err != nil {
		t.Fatal(err)
	}

	n, err := pdfmerger.CountPages(dstPath)
	if err != nil {
		t.Fatal(err)
	}
	if want := 9 + 5*2; n != want {
		t.Errorf("got %d pages, want %d", n, want)
	}

	srcAfter, err := os.ReadFile(srcPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(srcBefore, srcAfter) {
		t.Error("source file was modified")
	}
}

func TestInsertOrder(t *testing.T) {
	type testCase struct {
		dstPages, srcPages int
		after              []int
	}
	cases := []testCase{
		{9, 2, []int{0, 1, 2, 4, 8}},
		{3, 1, []int{2}},
		{1, 3, []int{0}},
		{5, 2, []int{0, 4}},
		{4, 2, nil},
	}
	for _, c := range cases {
		name := fmt.Sprintf("%d+%dx%d", c.dstPages, len(c.after), c.srcPages)
		t.Run(name, func(t *testing.T) {
			dstPath, srcPath := writeInputs(t,
				&pdftest.Doc{NumPages: c.dstPages, Label: "dst"},
				&pdftest.Doc{NumPages: c.srcPages, Label: "src"})

			err := pdfmerger.Insert(dstPath, c.after, srcPath, nil)
			if err != nil {
				t.Fatal(err)
			}

			want := expectedOrder(
				pageLabels("dst", c.dstPages),
				pageLabels("src", c.srcPages),
				c.after)
			got := pdftest.PageMarkers(t, dstPath)
			if d := cmp.Diff(want, got); d != "" {
				t.Errorf("page order mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestInsertNestedTrees(t *testing.T) {
	dstPath, srcPath := writeInputs(t,
		&pdftest.Doc{NumPages: 9, Label: "dst", Nested: true},
		&pdftest.Doc{NumPages: 2, Label: "src", Nested: true})
	after := []int{0, 4, 8}

	err := pdfmerger.Insert(dstPath, after, srcPath, nil)
	if err != nil {
		t.Fatal(err)
	}

	want := expectedOrder(pageLabels("dst", 9), pageLabels("src", 2), after)
	got := pdftest.PageMarkers(t, dstPath)
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("page order mismatch (-want +got):\n%s", d)
	}
}

func TestInsertValidation(t *testing.T) {
	cases := [][]int{
		{1, 0}, // not ascending
		{1, 1}, // duplicate
		{-1},   // negative
		{9},    // out of range
		{4, 9}, // partially out of range
	}
	for _, after := range cases {
		t.Run(fmt.Sprint(after), func(t *testing.T) {
			dstPath, srcPath := writeInputs(t,
				&pdftest.Doc{NumPages: 9, Label: "dst"},
				&pdftest.Doc{NumPages: 2, Label: "src"})

			before, err := os.ReadFile(dstPath)
			if err != nil {
				t.Fatal(err)
			}

			err = pdfmerger.Insert(dstPath, after, srcPath, nil)
			var argErr *pdfmerger.ArgumentError
			if !errors.As(err, &argErr) {
				t.Fatalf("got %v, want an *ArgumentError", err)
			}

			got, err := os.ReadFile(dstPath)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(before, got) {
				t.Error("destination was modified")
			}
		})
	}
}

func TestInsertMissingPagesRoot(t *testing.T) {
	for _, broken := range []string{"dst", "src", "dst-wrong-type"} {
		t.Run(broken, func(t *testing.T) {
			dir := t.TempDir()
			dstPath := filepath.Join(dir, "dst.pdf")
			srcPath := filepath.Join(dir, "src.pdf")

			good := &pdftest.Doc{NumPages: 3, Label: "p"}
			switch broken {
			case "dst":
				writeDanglingPagesDoc(t, dstPath)
				good.WriteFile(t, srcPath)
			case "src":
				good.WriteFile(t, dstPath)
				writeDanglingPagesDoc(t, srcPath)
			case "dst-wrong-type":
				writeWrongRootTypeDoc(t, dstPath)
				good.WriteFile(t, srcPath)
			}

			before, err := os.ReadFile(dstPath)
			if err != nil {
				t.Fatal(err)
			}

			var warnings []string
			opt := &pdfmerger.Options{
				Warn: func(msg string) { warnings = append(warnings, msg) },
			}
			err = pdfmerger.Insert(dstPath, []int{0}, srcPath, opt)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			after, err := os.ReadFile(dstPath)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(before, after) {
				t.Error("destination was modified")
			}

			if len(warnings) != 1 || !strings.Contains(warnings[0], "Pages root not found") {
				t.Errorf("unexpected warnings %q", warnings)
			}
		})
	}
}

func TestInsertDropsOutlines(t *testing.T) {
	dstPath, srcPath := writeInputs(t,
		&pdftest.Doc{NumPages: 3, Label: "dst", Outlines: true},
		&pdftest.Doc{NumPages: 2, Label: "src", Outlines: true})

	var warnings []string
	opt := &pdfmerger.Options{
		Warn: func(msg string) { warnings = append(warnings, msg) },
	}
	err := pdfmerger.Insert(dstPath, []int{1}, srcPath, opt)
	if err != nil {
		t.Fatal(err)
	}

	if pdftest.HasObjectType(t, dstPath, "Outlines") {
		t.Error("merged document still contains an outline tree")
	}

	r, err := pdf.Open(dstPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.GetMeta().Catalog.Outlines != 0 {
		t.Error("merged catalog still references an outline tree")
	}

	if len(warnings) != 1 || !strings.Contains(warnings[0], "Outlines") {
		t.Errorf("unexpected warnings %q", warnings)
	}
}

func TestInsertFirstWins(t *testing.T) {
	srcBox := pdf.Array{
		pdf.Integer(0), pdf.Integer(0), pdf.Integer(300), pdf.Integer(400),
	}
	dstPath, srcPath := writeInputs(t,
		&pdftest.Doc{
			NumPages: 2, Label: "dst",
			Root: pdf.Dict{"Rotate": pdf.Integer(90)},
		},
		&pdftest.Doc{
			NumPages: 1, Label: "src",
			Root: pdf.Dict{"Rotate": pdf.Integer(180), "CropBox": srcBox},
		})

	err := pdfmerger.Insert(dstPath, []int{0, 1}, srcPath, nil)
	if err != nil {
		t.Fatal(err)
	}

	r, err := pdf.Open(dstPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	root, err := pdf.GetDict(r, r.GetMeta().Catalog.Pages)
	if err != nil {
		t.Fatal(err)
	}

	// on key collision the destination root wins
	rot, err := pdf.GetInteger(r, root["Rotate"])
	if err != nil {
		t.Fatal(err)
	}
	if rot != 90 {
		t.Errorf("Rotate = %d, want 90", rot)
	}

	// keys absent from the destination root are taken from the source
	box, err := pdf.GetArray(r, root["CropBox"])
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(srcBox, box); d != "" {
		t.Errorf("CropBox mismatch (-want +got):\n%s", d)
	}

	count, err := pdf.GetInteger(r, root["Count"])
	if err != nil {
		t.Fatal(err)
	}
	if count != 4 {
		t.Errorf("Count = %d, want 4", count)
	}
	kids, err := pdf.GetArray(r, root["Kids"])
	if err != nil {
		t.Fatal(err)
	}
	if len(kids) != 4 {
		t.Errorf("len(Kids) = %d, want 4", len(kids))
	}
}

func TestInsertSubtreeAttributes(t *testing.T) {
	// Attributes which only appear on an intermediate page tree node
	// must survive the merge, since the pages inheriting them end up
	// directly under the new root.
	srcBox := pdf.Array{
		pdf.Integer(0), pdf.Integer(0), pdf.Integer(300), pdf.Integer(400),
	}
	dstPath, srcPath := writeInputs(t,
		&pdftest.Doc{
			NumPages: 3, Label: "dst", Nested: true,
			Inner: pdf.Dict{"Rotate": pdf.Integer(90)},
		},
		&pdftest.Doc{
			NumPages: 2, Label: "src", Nested: true,
			Inner: pdf.Dict{"Rotate": pdf.Integer(180), "CropBox": srcBox},
		})

	err := pdfmerger.Insert(dstPath, []int{1}, srcPath, nil)
	if err != nil {
		t.Fatal(err)
	}

	r, err := pdf.Open(dstPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	root, err := pdf.GetDict(r, r.GetMeta().Catalog.Pages)
	if err != nil {
		t.Fatal(err)
	}

	// the destination node is encountered first and wins
	rot, err := pdf.GetInteger(r, root["Rotate"])
	if err != nil {
		t.Fatal(err)
	}
	if rot != 90 {
		t.Errorf("Rotate = %d, want 90", rot)
	}

	// keys only present on a source node are carried over
	box, err := pdf.GetArray(r, root["CropBox"])
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(srcBox, box); d != "" {
		t.Errorf("CropBox mismatch (-want +got):\n%s", d)
	}
}

func TestInsertSharesResources(t *testing.T) {
	dstPath, srcPath := writeInputs(t,
		&pdftest.Doc{NumPages: 3, Label: "dst"},
		&pdftest.Doc{NumPages: 2, Label: "src", Shared: true})

	err := pdfmerger.Insert(dstPath, []int{0, 2}, srcPath, nil)
	if err != nil {
		t.Fatal(err)
	}

	// every occurrence of a source page is a separate object, but the
	// shared resource is copied only once
	want := map[string]int{
		"dst-0":      1,
		"dst-1":      1,
		"dst-2":      1,
		"src-0":      2,
		"src-1":      2,
		"src-shared": 1,
	}
	got := pdftest.MarkerCounts(t, dstPath)
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("object counts mismatch (-want +got):\n%s", d)
	}
}

func TestInsertLoadErrors(t *testing.T) {
	dir := t.TempDir()
	dstPath := filepath.Join(dir, "dst.pdf")
	srcPath := filepath.Join(dir, "src.pdf")
	(&pdftest.Doc{NumPages: 3, Label: "dst"}).WriteFile(t, dstPath)

	// missing source
	before, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatal(err)
	}
	err = pdfmerger.Insert(dstPath, []int{0}, srcPath, nil)
	if err == nil {
		t.Fatal("missing error for non-existent source")
	}
	after, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("destination was modified")
	}

	// malformed source
	err = os.WriteFile(srcPath, []byte("this is not a PDF file"), 0o666)
	if err != nil {
		t.Fatal(err)
	}
	err = pdfmerger.Insert(dstPath, []int{0}, srcPath, nil)
	if err == nil {
		t.Fatal("missing error for malformed source")
	}

	// missing destination
	err = pdfmerger.Insert(filepath.Join(dir, "no-such-file.pdf"), nil, srcPath, nil)
	if err == nil {
		t.Fatal("missing error for non-existent destination")
	}
}

// writeDanglingPagesDoc writes a PDF file whose catalog references a
// page tree root which does not exist in the file.
func writeDanglingPagesDoc(t *testing.T, fname string) {
	t.Helper()

	buf := &bytes.Buffer{}
	w, err := pdf.NewWriter(buf, pdf.V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.GetMeta().Catalog.Pages = w.Alloc()
	err = w.Close()
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(fname, buf.Bytes(), 0o666)
	if err != nil {
		t.Fatal(err)
	}
}

// writeWrongRootTypeDoc writes a PDF file whose catalog references a
// page tree root which is not a Pages dictionary.
func writeWrongRootTypeDoc(t *testing.T, fname string) {
	t.Helper()

	buf := &bytes.Buffer{}
	w, err := pdf.NewWriter(buf, pdf.V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}
	rootRef := w.Alloc()
	err = w.Put(rootRef, pdf.Dict{
		"Type": pdf.Name("Font"),
	})
	if err != nil {
		t.Fatal(err)
	}
	w.GetMeta().Catalog.Pages = rootRef
	err = w.Close()
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(fname, buf.Bytes(), 0o666)
	if err != nil {
		t.Fatal(err)
	}
}
