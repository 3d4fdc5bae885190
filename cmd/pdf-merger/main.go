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

// Pdf-merger rearranges the page sequence of PDF files.
//
// Usage:
//
//	pdf-merger -at 0,1,4 dest.pdf source.pdf
//	pdf-merger -even file.pdf
//
// With -at, a full copy of the source file's pages is inserted into
// the destination file after each of the listed zero-based page
// indices, and the destination file is overwritten with the result.
// With -even, an empty page is appended to the file if its page count
// is odd, so that the file can be printed double-sided.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	pdfmerger "github.com/Tschet1/pdf-merger"
)

func main() {
	at := flag.String("at", "", "comma-separated page indices to insert the source after")
	even := flag.Bool("even", false, "append an empty page if the page count is odd")
	flag.Parse()

	var err error
	switch {
	case *even && *at == "" && flag.NArg() == 1:
		err = pdfmerger.MakePageCountEven(flag.Arg(0))
	case !*even && *at != "" && flag.NArg() == 2:
		var after []int
		after, err = parseInsertionPoints(*at)
		if err == nil {
			err = pdfmerger.Insert(flag.Arg(0), after, flag.Arg(1), nil)
		}
	default:
		fmt.Fprintln(os.Stderr, "usage: pdf-merger -at n,n,... dest.pdf source.pdf")
		fmt.Fprintln(os.Stderr, "       pdf-merger -even file.pdf")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseInsertionPoints(arg string) ([]int, error) {
	var res []int
	for _, field := range strings.Split(arg, ",") {
		pos, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("invalid page index %q", field)
		}
		res = append(res, pos)
	}
	return res, nil
}
