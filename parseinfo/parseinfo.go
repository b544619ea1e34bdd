// Package parseinfo loads the parse-info document which maps workbook
// sheets onto resource classes of a data model.
package parseinfo

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/transform"
)

// Reserved column names. They are never properties.
const (
	ID              = "id"
	Label           = "label"
	Permissions     = "permissions"
	Bitstream       = "bitstream"
	IRI             = "iri"
	ARK             = "ark"
	Comment         = "comment"
	Encoding        = "encoding"
	Authorship      = "authorship"
	License         = "license"
	CopyrightHolder = "copyright_holder"

	// BitstreamPermissions is only a supplement target; as a column it is
	// a permissions column following a bitstream.
	BitstreamPermissions = "bitstream-permissions"
)

var reserved = map[string]bool{
	ID: true, Label: true, Permissions: true, Bitstream: true, IRI: true, ARK: true,
	Comment: true, Encoding: true, Authorship: true, License: true, CopyrightHolder: true,
}

// IsReserved reports whether name is a reserved column name.
func IsReserved(name string) bool { return reserved[name] }

var resourceTargets = map[string]bool{
	Permissions: true, Bitstream: true, BitstreamPermissions: true, IRI: true, ARK: true,
	Authorship: true, License: true, CopyrightHolder: true,
}

var propertyTargets = map[string]bool{Comment: true, Encoding: true, Permissions: true}

// ParseInfo is a loaded parse-info document.
type ParseInfo struct {
	Shortcode string
	Separator string
	// DataModelPath is empty when FindDataModel is set.
	DataModelPath       string
	FindDataModel       bool
	ResourcesFolderPath string
	SetPermissions      bool
	Workbooks           map[string]*Workbook
	// Dir is the directory relative paths are resolved against.
	Dir string
}

// Workbook holds the sheets of one xlsx file which are converted.
type Workbook struct {
	RelPath string
	Sheets  map[int]*SheetInfo
}

// SheetInfo describes how one sheet is converted.
type SheetInfo struct {
	Workbook     string
	Index        int
	ResourceName string
	Assignments  Assignments
	// Transformations is nil when the sheet has no transform block.
	Transformations *transform.Plan
	Supplements     Supplements
}

// Assignment reads Property from the column Header.
type Assignment struct {
	Header   transform.HeaderRef
	Property string
}

// Assignments maps columns to properties. With FindRest, columns whose
// header equals a property name are taken as that property.
type Assignments struct {
	Columns  []Assignment
	FindRest bool
}

// Target returns the property assigned to the column ref, if any.
func (a Assignments) Target(ref transform.HeaderRef) (string, bool) {
	for _, c := range a.Columns {
		if c.Header == ref {
			return c.Property, true
		}
	}
	return "", false
}

// Supplements attach columns to roles. Resource maps a resource target such
// as "bitstream" to its column; Properties maps a property name to its
// side-channel targets.
type Supplements struct {
	Resource   map[string]transform.HeaderRef
	Properties map[string]map[string]transform.HeaderRef
}

// String names the sheet in error messages.
func (s *SheetInfo) String() string {
	return sheetName(s.Workbook, s.Index)
}

// SortedSheets returns every sheet ordered by workbook path, then index.
func (pi *ParseInfo) SortedSheets() []*SheetInfo {
	var sheets []*SheetInfo
	for _, wb := range pi.Workbooks {
		for _, s := range wb.Sheets {
			sheets = append(sheets, s)
		}
	}
	sort.Slice(sheets, func(i, j int) bool {
		if sheets[i].Workbook != sheets[j].Workbook {
			return sheets[i].Workbook < sheets[j].Workbook
		}
		return sheets[i].Index < sheets[j].Index
	})
	return sheets
}

// DataModelLocation returns where the data model is read from. With
// FindDataModel it is the only *.json file in Dir.
func (pi *ParseInfo) DataModelLocation() (string, error) {
	if !pi.FindDataModel {
		return pi.DataModelPath, nil
	}
	matches, err := FindFiles(os.DirFS(pi.Dir), "*.json")
	if err != nil {
		return "", err
	}
	if len(matches) != 1 {
		return "", dspxml.InputErrorf("datamodel_path = cmd.find needs exactly one .json file in %s, found %d", pi.Dir, len(matches))
	}
	return filepath.Join(pi.Dir, filepath.FromSlash(matches[0])), nil
}

// FindFiles globs pattern in fsys and returns the sorted matches.
func FindFiles(fsys fs.FS, pattern string) ([]string, error) {
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, dspxml.IOError(err, "searching "+pattern)
	}
	sort.Strings(matches)
	return matches, nil
}
