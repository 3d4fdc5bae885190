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

// Package pdfmerger rearranges the page sequence of PDF files.
//
// The package provides two operations on top of the object model of
// [seehuhn.de/go/pdf]: [MakePageCountEven] appends an empty page to a
// document with an odd number of pages, so that the document can be
// printed double-sided, and [Insert] splices a full copy of one
// document's pages into another document after each of a list of page
// positions, producing a single merged document.
//
// Both operations rewrite the affected file in place.  The new file is
// constructed completely in memory before the old file is touched, so
// a failure during loading or merging leaves the file unchanged.
package pdfmerger
