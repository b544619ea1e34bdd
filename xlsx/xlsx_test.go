package xlsx_test

import (
	"path/filepath"
	"testing"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/test"
	"github.com/pilosa/dspxml/xlsx"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	test.WriteWorkbook(t, dir, "books.xlsx",
		test.Sheet{
			{"id", "label", "hasTitle", ""},
			{"b1", "One", "Hello"},
			{"", "", ""},
			{"b2", "Two"},
		},
		test.Sheet{
			{"id", "label"},
		},
	)
	o, err := dspxml.NewOpener("books.xlsx", dir)
	test.ErrNil(t, err, "opener")

	w, err := xlsx.Open(o)
	test.ErrNil(t, err, "open")
	defer w.Close()
	test.MustBe(t, w.SheetNames(), []string{"Sheet1", "Sheet2"})

	s, err := w.Sheet(1)
	test.ErrNil(t, err, "sheet 1")
	test.MustBe(t, s.Headers, []string{"id", "label", "hasTitle"})
	test.MustBe(t, s.Rows, [][]string{{"b1", "One", "Hello"}, {"b2", "Two", ""}})

	s, err = w.Sheet(2)
	test.ErrNil(t, err, "sheet 2")
	test.MustBe(t, len(s.Rows), 0)

	_, err = w.Sheet(3)
	test.ErrKind(t, err, dspxml.KindNotFound, "sheet 3")

	missing, err := dspxml.NewOpener("missing.xlsx", dir)
	test.ErrNil(t, err, "opener")
	_, err = xlsx.Load(missing, 1)
	test.ErrKind(t, err, dspxml.KindIO, "missing workbook")
}

func TestLoadStrayValues(t *testing.T) {
	dir := t.TempDir()
	test.WriteWorkbook(t, dir, "w.xlsx", test.Sheet{
		{"id", "label"},
		{"a", "b", "stray"},
	})
	o, err := dspxml.NewOpener(filepath.Join(dir, "w.xlsx"), "")
	test.ErrNil(t, err, "opener")
	_, err = xlsx.Load(o, 1)
	test.ErrKind(t, err, dspxml.KindParsing, "value without header")
}
