package header_test

import (
	"testing"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/datamodel"
	"github.com/pilosa/dspxml/header"
	"github.com/pilosa/dspxml/parseinfo"
	"github.com/pilosa/dspxml/test"
	"github.com/pilosa/dspxml/transform"
)

func resource(t *testing.T, name string) *datamodel.Resource {
	t.Helper()
	res, err := test.DataModel(t).Resource(name)
	test.ErrNil(t, err, "resource "+name)
	return res
}

func roles(l *header.Layout) []header.Role {
	rs := make([]header.Role, len(l.Columns))
	for i, c := range l.Columns {
		rs[i] = c.Role
	}
	return rs
}

func TestBitstreamAttachment(t *testing.T) {
	tbl := transform.NewTable(
		[]string{"id", "label", "bitstream", "permissions", "hasCaption", "permissions"},
		[][]string{{"i1", "Image", "a.tif", "res-restricted", "Caption", "prop-default"}},
		"|")
	s := &parseinfo.SheetInfo{Assignments: parseinfo.Assignments{FindRest: true}}
	l, err := header.Classify(tbl, s, resource(t, "Image"))
	test.ErrNil(t, err, "classify")
	test.MustBe(t, roles(l), []header.Role{
		header.ID, header.Label, header.Bitstream, header.BitstreamPermissions, header.Property, header.Permissions,
	})
	test.MustBe(t, l.Fields, []*header.Field{{Property: "hasCaption", Value: 4, Permissions: 5, Comment: -1, Encoding: -1}})
	i, ok := l.Attr(header.BitstreamPermissions)
	test.MustBe(t, ok, true)
	test.MustBe(t, i, 3)
	if _, ok := l.Attr(header.ResourcePermissions); ok {
		t.Fatalf("unexpected resource permissions")
	}
}

func TestClassify(t *testing.T) {
	tbl := transform.NewTable(
		[]string{"id", "label", "permissions", "Titel", "comment", "encoding", "permissions", "hasPages", "extra", "hasPrice", "note"},
		[][]string{make([]string, 11)},
		"|")
	test.ErrNil(t, tbl.Append(&transform.DataColumn{Header: "hasGenre", Cells: [][]string{nil}}), "append")
	test.ErrNil(t, tbl.Append(&transform.DataColumn{Header: "scratch", Cells: [][]string{nil}}), "append")
	s := &parseinfo.SheetInfo{
		Assignments: parseinfo.Assignments{
			Columns: []parseinfo.Assignment{{Header: transform.Name("Titel"), Property: "hasTitle"}, {Header: transform.Index(7), Property: "hasPages"}},
		},
		Supplements: parseinfo.Supplements{
			Properties: map[string]map[string]transform.HeaderRef{"hasGenre": {"comment": transform.Name("note")}},
		},
	}
	l, err := header.Classify(tbl, s, resource(t, "Book"))
	test.ErrNil(t, err, "classify")
	test.MustBe(t, roles(l), []header.Role{
		header.ID, header.Label, header.ResourcePermissions,
		header.Property, header.Comment, header.Encoding, header.Permissions,
		header.Property, header.Ignored,
		header.Ignored, // hasPrice is not assigned and rest is not set
		header.Comment,
		header.Property, header.Ignored,
	})
	test.MustBe(t, l.Field("hasTitle"), &header.Field{Property: "hasTitle", Value: 3, Permissions: 6, Comment: 4, Encoding: 5})
	test.MustBe(t, l.Field("hasGenre"), &header.Field{Property: "hasGenre", Value: 11, Permissions: -1, Comment: 10, Encoding: -1})
	test.MustBe(t, l.Columns[3].Name, "hasTitle")
	test.MustBe(t, l.Columns[10].Property, "hasGenre")

	// every column has exactly one role and the resource and field
	// indexes point back at it.
	seen := make(map[int]bool)
	for r, i := range l.Attrs {
		test.MustBe(t, l.Columns[i].Role, r)
		seen[i] = true
	}
	for _, f := range l.Fields {
		for _, i := range []int{f.Value, f.Permissions, f.Comment, f.Encoding} {
			if i < 0 {
				continue
			}
			if seen[i] {
				t.Fatalf("column %d has two roles", i)
			}
			seen[i] = true
			test.MustBe(t, l.Columns[i].Property, f.Property)
		}
	}
	for i, c := range l.Columns {
		if seen[i] != (c.Role != header.Ignored) {
			t.Fatalf("column %d: role %v, indexed %v", i, c.Role, seen[i])
		}
	}
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
	}{
		{"two ids", []string{"id", "label", "id"}},
		{"no label", []string{"id", "hasTitle"}},
		{"comment first", []string{"comment", "id", "label"}},
		{"comment after resource", []string{"id", "label", "encoding"}},
		{"two comments", []string{"id", "label", "hasTitle", "comment", "comment"}},
		{"property twice", []string{"id", "label", "hasTitle", "hasTitle"}},
		{"two resource permissions", []string{"permissions", "id", "label", "permissions"}},
		{"two bitstreams", []string{"id", "label", "bitstream", "bitstream"}},
	}
	for _, tst := range tests {
		tbl := transform.NewTable(tst.headers, nil, "|")
		s := &parseinfo.SheetInfo{Assignments: parseinfo.Assignments{FindRest: true}}
		_, err := header.Classify(tbl, s, resource(t, "Book"))
		test.ErrKind(t, err, dspxml.KindParsing, tst.name)
	}

	tbl := transform.NewTable([]string{"id", "label", "note"}, nil, "|")
	s := &parseinfo.SheetInfo{Supplements: parseinfo.Supplements{
		Properties: map[string]map[string]transform.HeaderRef{"hasTitle": {"comment": transform.Name("note")}},
	}}
	_, err := header.Classify(tbl, s, resource(t, "Book"))
	test.ErrKind(t, err, dspxml.KindParsing, "supplement without property column")

	s = &parseinfo.SheetInfo{Supplements: parseinfo.Supplements{
		Resource: map[string]transform.HeaderRef{"ark": transform.Name("missing")},
	}}
	_, err = header.Classify(tbl, s, resource(t, "Book"))
	test.ErrKind(t, err, dspxml.KindParsing, "unknown supplement column")
}
