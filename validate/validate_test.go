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

package validate_test

import (
	"strings"
	"testing"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/header"
	"github.com/pilosa/dspxml/parseinfo"
	"github.com/pilosa/dspxml/test"
	"github.com/pilosa/dspxml/transform"
	"github.com/pilosa/dspxml/validate"
)

func rows(t *testing.T, resName string, headers []string, data [][]string, opts validate.Options) ([]validate.Resource, error) {
	t.Helper()
	dm := test.DataModel(t)
	res, err := dm.Resource(resName)
	test.ErrNil(t, err, "resource")
	tbl := transform.NewTable(headers, data, "|")
	l, err := header.Classify(tbl, &parseinfo.SheetInfo{Assignments: parseinfo.Assignments{FindRest: true}}, res)
	test.ErrNil(t, err, "classify")
	return validate.Rows(tbl, l, dm, res, opts)
}

func texts(f validate.Field) []string {
	var out []string
	for _, v := range f.Values {
		out = append(out, v.Text)
	}
	return out
}

func TestParsers(t *testing.T) {
	dm := test.DataModel(t)
	tests := []struct {
		prop string
		in   string
		exp  string
		err  bool
	}{
		{prop: "hasPages", in: "42", exp: "42"},
		{prop: "hasPages", in: "+7", exp: "7"},
		{prop: "hasPages", in: "4.2", err: true},
		{prop: "hasPrice", in: "4.20", exp: "4.20"},
		{prop: "hasPrice", in: "cheap", err: true},
		{prop: "hasPrice", in: "-1.5e3", exp: "-1.5e3"},
		{prop: "hasPrice", in: "NaN", err: true},
		{prop: "hasPrice", in: "Inf", err: true},
		{prop: "hasPrice", in: "-infinity", err: true},
		{prop: "hasPrice", in: "0x1p3", err: true},
		{prop: "hasPrice", in: "1e400", err: true},
		{prop: "hasPrice", in: ".5", err: true},
		{prop: "isPublished", in: "TRUE", exp: "true"},
		{prop: "isPublished", in: "no", exp: "false"},
		{prop: "isPublished", in: "0", exp: "false"},
		{prop: "isPublished", in: "maybe", err: true},
		{prop: "hasTimestamp", in: "2019-10-23T13:45:12Z", exp: "2019-10-23T13:45:12Z"},
		{prop: "hasTimestamp", in: "2019-10-23 13:45:12.5+01:00", exp: "2019-10-23T13:45:12.5+01:00"},
		{prop: "hasTimestamp", in: "2019-10-23", err: true},
		{prop: "hasGenre", in: "sonnet", exp: "sonnet"},
		{prop: "hasGenre", in: "Novel", err: true},
		{prop: "hasDate", in: "anything goes", exp: "anything goes"},
		{prop: "hasTitle", in: "<p>x</p>", exp: "<p>x</p>"},
	}
	for i, tst := range tests {
		prop, err := dm.Property(tst.prop)
		test.ErrNil(t, err, "property")
		p, err := validate.ParserFor(prop, dm)
		test.ErrNil(t, err, "parser")
		got, err := p.Parse(tst.in)
		if tst.err {
			test.ErrKind(t, err, dspxml.KindParsing, tst.in)
			continue
		}
		if err != nil {
			t.Fatalf("test %d: parsing %q as %s: %v", i, tst.in, tst.prop, err)
		}
		if got != tst.exp {
			t.Fatalf("test %d: got %q, expected %q", i, got, tst.exp)
		}
	}
}

func TestListValidation(t *testing.T) {
	_, err := rows(t, "Book",
		[]string{"id", "label", "hasTitle", "hasGenre"},
		[][]string{{"b1", "My Book", "Hello", "novel|poem"}},
		validate.Options{})
	test.ErrKind(t, err, dspxml.KindParsing, "list")
	if !strings.Contains(err.Error(), `"poem"`) || !strings.Contains(err.Error(), "row 1") || !strings.Contains(err.Error(), "hasGenre") {
		t.Fatalf("error lacks context: %v", err)
	}
}

func TestRows(t *testing.T) {
	got, err := rows(t, "Book",
		[]string{"id", "label", "permissions", "hasTitle", "encoding", "hasGenre", "comment", "hasPages", "isPublished"},
		[][]string{
			{"b1", "My Book", "", "Hello", "xml", "novel||essay", "first||second", "12", "yes"},
			{"b2", "Other", "res-restricted", "Bye", "", "", "", "", ""},
		},
		validate.Options{SetPermissions: true})
	test.ErrNil(t, err, "rows")
	test.MustBe(t, len(got), 2)

	b1 := got[0]
	test.MustBe(t, b1.ID, "b1")
	test.MustBe(t, b1.Label, "My Book")
	test.MustBe(t, b1.Permissions, validate.ResourceDefault)
	test.MustBe(t, len(b1.Values), 4)
	test.MustBe(t, b1.Values[0].Property.Name, "hasTitle")
	test.MustBe(t, b1.Values[0].Values, []validate.Value{{Text: "Hello", Encoding: "xml", Permissions: validate.PropertyDefault}})
	test.MustBe(t, texts(b1.Values[1]), []string{"novel", "essay"})
	test.MustBe(t, b1.Values[1].Values[0].Comment, "first")
	test.MustBe(t, b1.Values[1].Values[1].Comment, "second")
	test.MustBe(t, texts(b1.Values[3]), []string{"true"})

	b2 := got[1]
	test.MustBe(t, b2.Permissions, "res-restricted")
	test.MustBe(t, len(b2.Values), 1)
	if b2.Bitstream != nil {
		t.Fatalf("unexpected bitstream")
	}
}

func TestRowsWithoutPermissions(t *testing.T) {
	got, err := rows(t, "Book",
		[]string{"id", "label", "hasTitle", "permissions"},
		[][]string{{"b1", "My Book", "Hello", "custom"}},
		validate.Options{})
	test.ErrNil(t, err, "rows")
	test.MustBe(t, got[0].Permissions, "")
	test.MustBe(t, got[0].Values[0].Values[0].Permissions, "custom")
}

func TestBitstream(t *testing.T) {
	got, err := rows(t, "Image",
		[]string{"id", "label", "bitstream", "permissions", "authorship", "license", "copyright_holder", "hasCaption", "permissions"},
		[][]string{{"i1", "Image", "img/a.tif", "res-restricted", "Ann|Bob", "CC BY 4.0", "DaSCH", "Caption", "prop-restricted"}},
		validate.Options{SetPermissions: true})
	test.ErrNil(t, err, "rows")
	test.MustBe(t, got[0].Bitstream, &validate.Bitstream{
		Path:            "img/a.tif",
		Permissions:     "res-restricted",
		Authorship:      "Ann, Bob",
		License:         "http://rdfh.ch/licenses/cc-by-4.0",
		CopyrightHolder: "DaSCH",
	})
	test.MustBe(t, got[0].Permissions, validate.ResourceDefault)
	test.MustBe(t, got[0].Values[0].Values[0].Permissions, "prop-restricted")
}

func TestLicenseIRI(t *testing.T) {
	for in, exp := range map[string]string{
		"CC BY-SA 4.0":                      "http://rdfh.ch/licenses/cc-by-sa-4.0",
		"cc_by_nc_4.0":                      "http://rdfh.ch/licenses/cc-by-nc-4.0",
		"http://rdfh.ch/licenses/cc-by-4.0": "http://rdfh.ch/licenses/cc-by-4.0",
		"Public Domain":                     "http://rdfh.ch/licenses/public-domain",
	} {
		got, err := validate.LicenseIRI(in)
		test.ErrNil(t, err, in)
		test.MustBe(t, got, exp, in)
	}
	_, err := validate.LicenseIRI("GPL")
	test.ErrKind(t, err, dspxml.KindParsing, "unknown license")
}

func TestRowErrors(t *testing.T) {
	tests := []struct {
		name    string
		res     string
		headers []string
		row     []string
		opts    validate.Options
	}{
		{name: "empty id", res: "Book", headers: []string{"id", "label", "hasTitle"}, row: []string{"", "l", "t"}},
		{name: "empty label", res: "Book", headers: []string{"id", "label", "hasTitle"}, row: []string{"b", " ", "t"}},
		{name: "two ids", res: "Book", headers: []string{"id", "label", "hasTitle"}, row: []string{"a|b", "l", "t"}},
		{name: "missing required", res: "Book", headers: []string{"id", "label", "hasTitle"}, row: []string{"b", "l", ""}},
		{name: "too many", res: "Book", headers: []string{"id", "label", "hasTitle"}, row: []string{"b", "l", "x|y"}},
		{name: "multi boolean", res: "Book", headers: []string{"id", "label", "hasTitle", "isPublished"}, row: []string{"b", "l", "t", "true|false"}},
		{name: "bad integer", res: "Book", headers: []string{"id", "label", "hasTitle", "hasPages"}, row: []string{"b", "l", "t", "many"}},
		{name: "bad encoding", res: "Book", headers: []string{"id", "label", "hasTitle", "encoding"}, row: []string{"b", "l", "t", "html"}},
		{name: "malformed xml", res: "Book", headers: []string{"id", "label", "hasTitle", "encoding"}, row: []string{"b", "l", "<p>t", "xml"}},
		{name: "side count", res: "Book", headers: []string{"id", "label", "hasTitle", "hasUrl", "comment"}, row: []string{"b", "l", "t", "a|b|c", "x|y"}},
		{name: "unknown permissions", res: "Book", headers: []string{"id", "label", "permissions", "hasTitle"}, row: []string{"b", "l", "public", "t"}, opts: validate.Options{SetPermissions: true}},
		{name: "empty bitstream", res: "Image", headers: []string{"id", "label", "bitstream"}, row: []string{"i", "l", ""}},
		{name: "no bitstream column", res: "Image", headers: []string{"id", "label", "hasCaption"}, row: []string{"i", "l", "c"}},
		{name: "bitstream on non-representation", res: "Book", headers: []string{"id", "label", "bitstream", "hasTitle"}, row: []string{"b", "l", "f.tif", "t"}},
		{name: "bad license", res: "Image", headers: []string{"id", "label", "bitstream", "license"}, row: []string{"i", "l", "f.tif", "mine"}},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			_, err := rows(t, tst.res, tst.headers, [][]string{tst.row}, tst.opts)
			test.ErrKind(t, err, dspxml.KindParsing, tst.name)
		})
	}
}
