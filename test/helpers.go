package test

import (
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/datamodel"
	"github.com/xuri/excelize/v2"
)

// MustBe uses reflect.DeepEqual to assert that thing1 and thing2 are equal, and
// fails otherwise.
func MustBe(t *testing.T, thing1, thing2 interface{}, context ...string) {
	t.Helper()
	var ctx string
	if len(context) == 0 {
		ctx = ""
	} else {
		ctx = context[0] + ": "
	}
	if !reflect.DeepEqual(thing1, thing2) {
		t.Fatalf("%v'%#v' != '%#v'", ctx, thing1, thing2)
	}
}

// ErrNil asserts that the err is nil and fails otherwise.
func ErrNil(t *testing.T, err error, ctx string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%v: %v", ctx, err)
	}
}

// ErrKind asserts that err is non-nil and of the given kind.
func ErrKind(t *testing.T, err error, kind dspxml.Kind, ctx string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%v: expected %v, got nil", ctx, kind)
	}
	if got := dspxml.KindOf(err); got != kind {
		t.Fatalf("%v: expected %v, got %v (%v)", ctx, kind, got, err)
	}
}

// ProjectJSON is a small project exercising every value type.
const ProjectJSON = `{
  "project": {
    "shortcode": "0820",
    "shortname": "demo",
    "lists": [
      {
        "name": "genre",
        "labels": {"en": "Genre"},
        "nodes": [
          {"name": "novel", "labels": {"en": "Novel", "de": "Roman"}},
          {"name": "essay", "labels": {"en": "Essay", "de": "Aufsatz"}},
          {"name": "poetry", "labels": {"en": "Poetry"}, "nodes": [
            {"name": "sonnet", "labels": {"en": "Sonnet", "fr": "Sonnet"}}
          ]}
        ]
      }
    ],
    "ontologies": [
      {
        "name": "demo",
        "label": "Demo ontology",
        "properties": [
          {"name": "hasTitle", "super": ["hasValue"], "object": "TextValue", "labels": {"en": "Title"}, "gui_element": "SimpleText"},
          {"name": "hasGenre", "super": ["hasValue"], "object": "ListValue", "labels": {"en": "Genre"}, "gui_element": "List", "gui_attributes": {"hlist": "genre"}},
          {"name": "hasDate", "super": ["hasValue"], "object": "DateValue", "labels": {"en": "Date"}, "gui_element": "Date"},
          {"name": "hasPages", "super": ["hasValue"], "object": "IntValue", "labels": {"en": "Pages"}, "gui_element": "Spinbox"},
          {"name": "hasPrice", "super": ["hasValue"], "object": "DecimalValue", "labels": {"en": "Price"}, "gui_element": "SimpleText"},
          {"name": "isPublished", "super": ["hasValue"], "object": "BooleanValue", "labels": {"en": "Published"}, "gui_element": "Checkbox"},
          {"name": "hasTimestamp", "super": ["hasValue"], "object": "TimeValue", "labels": {"en": "Timestamp"}, "gui_element": "TimeStamp"},
          {"name": "hasUrl", "super": ["hasValue"], "object": "UriValue", "labels": {"en": "Url"}, "gui_element": "SimpleText"},
          {"name": "hasPlace", "super": ["hasValue"], "object": "GeonameValue", "labels": {"en": "Place"}, "gui_element": "Geonames"},
          {"name": "hasColor", "super": ["hasValue"], "object": "ColorValue", "labels": {"en": "Color"}, "gui_element": "Colorpicker"},
          {"name": "hasAuthor", "super": ["hasLinkTo"], "object": ":Person", "labels": {"en": "Author"}, "gui_element": "Searchbox"},
          {"name": "hasName", "super": ["hasValue"], "object": "TextValue", "labels": {"en": "Name"}, "gui_element": "SimpleText"},
          {"name": "hasCaption", "super": ["hasValue"], "object": "TextValue", "labels": {"en": "Caption"}, "gui_element": "Richtext"}
        ],
        "resources": [
          {
            "name": "Book",
            "super": "Resource",
            "labels": {"en": "Book"},
            "cardinalities": [
              {"propname": ":hasTitle", "cardinality": "1"},
              {"propname": ":hasGenre", "cardinality": "0-n"},
              {"propname": ":hasDate", "cardinality": "0-1"},
              {"propname": ":hasPages", "cardinality": "0-1"},
              {"propname": ":hasPrice", "cardinality": "0-1"},
              {"propname": ":isPublished", "cardinality": "0-1"},
              {"propname": ":hasTimestamp", "cardinality": "0-n"},
              {"propname": ":hasUrl", "cardinality": "0-n"},
              {"propname": ":hasPlace", "cardinality": "0-n"},
              {"propname": ":hasColor", "cardinality": "0-1"},
              {"propname": ":hasAuthor", "cardinality": "0-n"}
            ]
          },
          {
            "name": "Person",
            "super": "Resource",
            "labels": {"en": "Person"},
            "cardinalities": [
              {"propname": ":hasName", "cardinality": "1"}
            ]
          },
          {
            "name": "Image",
            "super": "StillImageRepresentation",
            "labels": {"en": "Image"},
            "cardinalities": [
              {"propname": ":hasCaption", "cardinality": "0-n"}
            ]
          }
        ]
      }
    ]
  }
}`

// DataModel returns the data model described by ProjectJSON.
func DataModel(t testing.TB) *datamodel.DataModel {
	t.Helper()
	dm, err := datamodel.Parse([]byte(ProjectJSON))
	if err != nil {
		t.Fatalf("parsing test data model: %v", err)
	}
	return dm
}

// Sheet is the content of one worksheet: the first row is the header.
type Sheet [][]string

// WriteWorkbook writes an xlsx file at dir/name whose worksheets hold sheets
// in order, and returns its path.
func WriteWorkbook(t testing.TB, dir, name string, sheets ...Sheet) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, sheet := range sheets {
		sheetName := "Sheet" + strconv.Itoa(i+1)
		if i > 0 {
			if _, err := f.NewSheet(sheetName); err != nil {
				t.Fatalf("adding sheet %s: %v", sheetName, err)
			}
		}
		for r, row := range sheet {
			for c, val := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					t.Fatalf("cell name: %v", err)
				}
				if err := f.SetCellStr(sheetName, cell, val); err != nil {
					t.Fatalf("setting %s: %v", cell, err)
				}
			}
		}
	}
	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving workbook: %v", err)
	}
	return path
}
