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
)

// A copier transfers objects from one input document into the merged
// output document.  The copier keeps a translation table from input
// references to output references, so that each input object is copied
// at most once and references stay consistent after the copy.
//
// Output references are allocated through the output document as
// needed.  This replaces in-place renumbering of the inputs: the
// inputs are never modified, and the two input documents can never
// collide in the output ID space.
type copier struct {
	trans map[pdf.Reference]pdf.Reference
	r     pdf.Getter
	w     *pdf.Data
}

func newCopier(w *pdf.Data, r pdf.Getter) *copier {
	return &copier{
		trans: make(map[pdf.Reference]pdf.Reference),
		w:     w,
		r:     r,
	}
}

// redirect pins the input reference old to the output reference new,
// without copying the referenced object.  Later copies of old resolve
// through the table instead of allocating a fresh output object.  If
// old is already pinned, the earlier entry is kept.
func (c *copier) redirect(old, new pdf.Reference) {
	if _, ok := c.trans[old]; !ok {
		c.trans[old] = new
	}
}

// copy copies an object from the input document into the output,
// recursively.  The returned object has the same type as obj.
func (c *copier) copy(obj pdf.Object) (pdf.Object, error) {
	switch x := obj.(type) {
	case pdf.Dict:
		return c.copyDict(x)
	case pdf.Array:
		return c.copyArray(x)
	case *pdf.Stream:
		dict, err := c.copyDict(x.Dict)
		if err != nil {
			return nil, err
		}
		res := &pdf.Stream{
			Dict: dict,
			R:    x.R,
		}
		return res, nil
	case pdf.Reference:
		return c.copyReference(x)
	default:
		return obj, nil
	}
}

func (c *copier) copyDict(obj pdf.Dict) (pdf.Dict, error) {
	res := pdf.Dict{}
	for key, val := range obj {
		repl, err := c.copy(val)
		if err != nil {
			return nil, err
		}
		res[key] = repl
	}
	return res, nil
}

func (c *copier) copyArray(obj pdf.Array) (pdf.Array, error) {
	var res pdf.Array
	for _, val := range obj {
		repl, err := c.copy(val)
		if err != nil {
			return nil, err
		}
		res = append(res, repl)
	}
	return res, nil
}

// copyReference copies an indirect object from the input document to
// the output and returns the translated reference.
func (c *copier) copyReference(obj pdf.Reference) (pdf.Reference, error) {
	newRef, ok := c.trans[obj]
	if ok {
		return newRef, nil
	}
	newRef = c.w.Alloc()
	c.trans[obj] = newRef

	val, err := pdf.Resolve(c.r, obj)
	if err != nil {
		return 0, err
	}
	repl, err := c.copy(val)
	if err != nil {
		return 0, err
	}
	err = c.w.Put(newRef, repl)
	if err != nil {
		return 0, err
	}
	return newRef, nil
}
