package iristore_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/iristore"
	"github.com/pilosa/dspxml/test"
	"github.com/pilosa/dspxml/transform"
)

var _ transform.IRILookup = iristore.Store(nil)

func TestStores(t *testing.T) {
	dir := t.TempDir()
	for _, c := range []struct{ kind, path string }{
		{"memory", ""},
		{"bolt", filepath.Join(dir, "iris.db")},
		{"leveldb", filepath.Join(dir, "iris")},
	} {
		t.Run(c.kind, func(t *testing.T) {
			s, err := iristore.Open(c.kind, c.path)
			test.ErrNil(t, err, "open")
			defer s.Close()

			n, err := iristore.ImportID2IRI(s, "Person", strings.NewReader(`{"p1": "http://rdfh.ch/0820/p1", "p2": "http://rdfh.ch/0820/p2"}`))
			test.ErrNil(t, err, "import")
			test.MustBe(t, n, 2)
			test.ErrNil(t, s.Put("Person", "p2", "http://rdfh.ch/0820/p2b"), "overwrite")

			has, err := s.HasResource("Person")
			test.ErrNil(t, err, "has Person")
			test.MustBe(t, has, true)
			has, err = s.HasResource("Book")
			test.ErrNil(t, err, "has Book")
			test.MustBe(t, has, false)

			iri, ok, err := s.Lookup("Person", "p2")
			test.ErrNil(t, err, "lookup")
			test.MustBe(t, ok, true)
			test.MustBe(t, iri, "http://rdfh.ch/0820/p2b")
			_, ok, err = s.Lookup("Book", "p1")
			test.ErrNil(t, err, "lookup other resource")
			test.MustBe(t, ok, false)
		})
	}
}

func TestOpenErrors(t *testing.T) {
	_, err := iristore.Open("redis", "")
	test.ErrKind(t, err, dspxml.KindInput, "unknown kind")
	_, err = iristore.Open("bolt", "")
	test.ErrKind(t, err, dspxml.KindInput, "bolt without path")
	_, err = iristore.ImportID2IRI(iristore.NewMapStore(), "Person", strings.NewReader(`["p1"]`))
	test.ErrKind(t, err, dspxml.KindInput, "not an object")
	_, err = iristore.ImportID2IRI(iristore.NewMapStore(), "", strings.NewReader(`{}`))
	test.ErrKind(t, err, dspxml.KindInput, "no resource")
}
