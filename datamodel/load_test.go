package datamodel_test

import (
	"strings"
	"testing"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/datamodel"
	"github.com/pilosa/dspxml/test"
)

func TestParseProject(t *testing.T) {
	dm := test.DataModel(t)
	test.MustBe(t, dm.Shortcode, "0820", "shortcode")
	test.MustBe(t, dm.Shortname, "demo", "shortname")
	test.MustBe(t, dm.ResourceNames(), []string{"Book", "Image", "Person"}, "resources")

	book, err := dm.Resource("Book")
	test.ErrNil(t, err, "getting Book")
	if book.SuperClass.IsRepresentation() {
		t.Fatalf("Book should not be a representation")
	}
	card, ok := book.Cardinality("hasTitle")
	if !ok || card != datamodel.One {
		t.Fatalf("unexpected hasTitle cardinality: %v %v", card, ok)
	}
	if card.Min() != 1 || card.Max() != 1 {
		t.Fatalf("unexpected bounds for %v: %d %d", card, card.Min(), card.Max())
	}

	img, err := dm.Resource(":Image")
	test.ErrNil(t, err, "getting :Image")
	test.MustBe(t, img.SuperClass, datamodel.SuperStillImageRepresentation, "image super class")

	author, err := dm.Property("hasAuthor")
	test.ErrNil(t, err, "getting hasAuthor")
	test.MustBe(t, author.Type, datamodel.ValueType{Kind: datamodel.KindResourceLink, Target: "Person"}, "hasAuthor type")

	genre, err := dm.Property("demo:hasGenre")
	test.ErrNil(t, err, "getting hasGenre")
	test.MustBe(t, genre.ListName, "genre", "list name")

	types := map[string]datamodel.ValueKind{
		"hasTitle":     datamodel.KindText,
		"hasDate":      datamodel.KindDate,
		"hasPages":     datamodel.KindInteger,
		"hasPrice":     datamodel.KindDecimal,
		"isPublished":  datamodel.KindBoolean,
		"hasTimestamp": datamodel.KindTime,
		"hasUrl":       datamodel.KindURI,
		"hasPlace":     datamodel.KindGeoname,
		"hasColor":     datamodel.KindColor,
	}
	for name, kind := range types {
		p, err := dm.Property(name)
		test.ErrNil(t, err, name)
		if p.Type.Kind != kind {
			t.Fatalf("%s: expected %v, got %v", name, kind, p.Type)
		}
	}

	_, err = dm.Resource("Letter")
	test.ErrKind(t, err, dspxml.KindNotFound, "unknown resource")
}

func TestListLookups(t *testing.T) {
	dm := test.DataModel(t)
	l, err := dm.PropertyList("hasGenre")
	test.ErrNil(t, err, "getting genre list")

	for _, name := range []string{"novel", "essay", "poetry", "sonnet"} {
		if !l.HasNode(name) {
			t.Fatalf("expected node %q", name)
		}
	}
	if l.HasNode("Novel") {
		t.Fatalf("node names are case sensitive")
	}

	tests := []struct {
		label string
		name  string
		ok    bool
	}{
		{label: "Novel", name: "novel", ok: true},
		{label: "Roman", name: "novel", ok: true},
		{label: " aufsatz ", name: "essay", ok: true},
		{label: "Sonnet", name: "sonnet", ok: true},
		{label: "Poem", ok: false},
	}
	for _, tst := range tests {
		name, ok := l.NameForLabel(tst.label)
		if ok != tst.ok || name != tst.name {
			t.Fatalf("label %q: expected (%q, %v), got (%q, %v)", tst.label, tst.name, tst.ok, name, ok)
		}
	}

	_, err = dm.PropertyList("hasTitle")
	test.ErrKind(t, err, dspxml.KindNotFound, "text property has no list")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		kind    dspxml.Kind
	}{
		{
			name:    "bad shortcode",
			replace: [2]string{`"shortcode": "0820"`, `"shortcode": "08200"`},
			kind:    dspxml.KindInput,
		},
		{
			name:    "unknown list",
			replace: [2]string{`"hlist": "genre"`, `"hlist": "genres"`},
			kind:    dspxml.KindNotFound,
		},
		{
			name:    "unknown object",
			replace: [2]string{`"object": ":Person"`, `"object": ":Letter"`},
			kind:    dspxml.KindNotFound,
		},
		{
			name:    "unknown cardinality property",
			replace: [2]string{`{"propname": ":hasName", "cardinality": "1"}`, `{"propname": ":hasNickname", "cardinality": "1"}`},
			kind:    dspxml.KindNotFound,
		},
		{
			name:    "bad cardinality",
			replace: [2]string{`{"propname": ":hasName", "cardinality": "1"}`, `{"propname": ":hasName", "cardinality": "2"}`},
			kind:    dspxml.KindInput,
		},
		{
			name: "list without nodes",
			replace: [2]string{`"labels": {"en": "Genre"},
        "nodes": [`, `"labels": {"en": "Genre"},
        "nodes": [], "unused": [`},
			kind: dspxml.KindInput,
		},
		{
			name:    "invalid json",
			replace: [2]string{`"project": {`, `"project": [`},
			kind:    dspxml.KindInput,
		},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			src := strings.Replace(test.ProjectJSON, tst.replace[0], tst.replace[1], 1)
			if src == test.ProjectJSON {
				t.Fatalf("replacement %q did not apply", tst.replace[0])
			}
			_, err := datamodel.Parse([]byte(src))
			test.ErrKind(t, err, tst.kind, tst.name)
		})
	}
}
