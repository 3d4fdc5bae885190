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

// StructureError indicates that a document could be read, but its
// catalog or page tree does not have the shape required for the
// requested operation.
type StructureError struct {
	Msg string
	Err error
}

func (e *StructureError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *StructureError) Unwrap() error {
	return e.Err
}

// ArgumentError indicates that the insertion points given to [Insert]
// are not strictly ascending, or refer to pages which do not exist.
type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string {
	return e.Msg
}
