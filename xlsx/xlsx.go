// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package xlsx reads workbook sheets into header and data rows.
package xlsx

import (
	"strings"

	"github.com/pilosa/dspxml"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet. Rows are padded to the header width; rows which
// are entirely blank are dropped.
type Sheet struct {
	Name    string
	Index   int
	Headers []string
	Rows    [][]string
}

// Workbook is an opened xlsx file.
type Workbook struct {
	name string
	f    *excelize.File
}

// Open reads the workbook behind o. The caller must Close it.
func Open(o dspxml.OpenStringer) (*Workbook, error) {
	rc, err := o.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %v", o)
	}
	defer rc.Close()
	f, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, dspxml.IOError(err, "reading workbook "+o.String())
	}
	return &Workbook{name: o.String(), f: f}, nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return dspxml.IOError(w.f.Close(), "closing workbook "+w.name)
}

// SheetNames lists the worksheets in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.f.GetSheetList()
}

// Sheet returns the worksheet at the 1-based position index. The first row
// holds the headers.
func (w *Workbook) Sheet(index int) (*Sheet, error) {
	names := w.f.GetSheetList()
	if index < 1 || index > len(names) {
		return nil, dspxml.NotFoundErrorf("%s has %d sheets, there is no sheet %d", w.name, len(names), index)
	}
	name := names[index-1]
	rows, err := w.f.GetRows(name)
	if err != nil {
		return nil, dspxml.IOError(err, "reading sheet "+name+" of "+w.name)
	}
	s := &Sheet{Name: name, Index: index}
	if len(rows) == 0 {
		return s, nil
	}
	s.Headers = trimTrailing(rows[0])
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		if len(row) > len(s.Headers) {
			extra := row[len(s.Headers):]
			if !blank(extra) {
				return nil, dspxml.ParsingErrorf("sheet %s of %s has values in columns without a header", name, w.name)
			}
			row = row[:len(s.Headers)]
		}
		padded := make([]string, len(s.Headers))
		copy(padded, row)
		s.Rows = append(s.Rows, padded)
	}
	return s, nil
}

// Load opens the workbook at o and reads one sheet.
func Load(o dspxml.OpenStringer, index int) (*Sheet, error) {
	w, err := Open(o)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return w.Sheet(index)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimTrailing(row []string) []string {
	n := len(row)
	for n > 0 && strings.TrimSpace(row[n-1]) == "" {
		n--
	}
	out := make([]string, n)
	for i := range out {
		out[i] = strings.TrimSpace(row[i])
	}
	return out
}
