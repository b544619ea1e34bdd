// Package validate checks the expanded cells of a sheet against the data
// model and builds the resource rows written to XML.
package validate

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/datamodel"
	"github.com/pilosa/dspxml/header"
	"github.com/pilosa/dspxml/transform"
	"github.com/pkg/errors"
)

// Permission ids declared in every document written with set_permissions.
const (
	ResourceDefault    = "res-default"
	ResourceRestricted = "res-restricted"
	PropertyDefault    = "prop-default"
	PropertyRestricted = "prop-restricted"
)

// PermissionIDs are the declared permission ids in document order.
var PermissionIDs = []string{ResourceDefault, ResourceRestricted, PropertyDefault, PropertyRestricted}

// Encodings of text values.
var Encodings = []string{"utf8", "xml"}

const licensePrefix = "http://rdfh.ch/licenses/"

var licenses = map[string]string{
	"cc-by-4.0":       "cc-by-4.0",
	"cc-by-sa-4.0":    "cc-by-sa-4.0",
	"cc-by-nc-4.0":    "cc-by-nc-4.0",
	"cc-by-nc-sa-4.0": "cc-by-nc-sa-4.0",
	"cc-by-nd-4.0":    "cc-by-nd-4.0",
	"cc-by-nc-nd-4.0": "cc-by-nc-nd-4.0",
	"ai-generated":    "ai-generated",
	"unknown":         "unknown",
	"public-domain":   "public-domain",
	"boris":           "boris",
	"cc0":             "cc-0-1.0",
	"cc-0-1.0":        "cc-0-1.0",
}

// LicenseIRI maps a license as written in a sheet ("CC BY 4.0",
// "cc-by-4.0" or the IRI itself) to its IRI.
func LicenseIRI(v string) (string, error) {
	key := strings.TrimPrefix(strings.TrimSpace(v), licensePrefix)
	key = strings.ToLower(strings.NewReplacer(" ", "-", "_", "-").Replace(key))
	if id, ok := licenses[key]; ok {
		return licensePrefix + id, nil
	}
	return "", dspxml.ParsingErrorf("unknown license %q", v)
}

// Options control validation.
type Options struct {
	// SetPermissions requires declared permission ids and applies the
	// default ids to values without one.
	SetPermissions bool
}

// Resource is one validated row.
type Resource struct {
	ID          string
	Label       string
	Permissions string
	IRI         string
	ARK         string
	Bitstream   *Bitstream
	Values      []Field
}

// Bitstream is the file attached to a representation.
type Bitstream struct {
	Path            string
	Permissions     string
	Authorship      string
	License         string
	CopyrightHolder string
}

// Field holds the values of one property.
type Field struct {
	Property *datamodel.Property
	Values   []Value
}

// Value is one scalar with its side-channels.
type Value struct {
	Text        string
	Permissions string
	Encoding    string
	Comment     string
}

type field struct {
	layout *header.Field
	prop   *datamodel.Property
	card   datamodel.Cardinality
	parser Parser
}

type validator struct {
	t      *transform.Table
	layout *header.Layout
	res    *datamodel.Resource
	opts   Options
	fields []field
}

// Rows validates every row of t, classified by layout, as instances of res.
func Rows(t *transform.Table, layout *header.Layout, dm *datamodel.DataModel, res *datamodel.Resource, opts Options) ([]Resource, error) {
	v := &validator{t: t, layout: layout, res: res, opts: opts}
	_, hasBitstream := layout.Attr(header.Bitstream)
	switch {
	case res.SuperClass.IsRepresentation() && !hasBitstream:
		return nil, dspxml.ParsingErrorf("%s is a %v and needs a bitstream column", res.Name, res.SuperClass)
	case !res.SuperClass.IsRepresentation() && hasBitstream:
		return nil, dspxml.ParsingErrorf("%s is not a representation and cannot have a bitstream column", res.Name)
	}
	for _, lf := range layout.Fields {
		prop, err := dm.Property(lf.Property)
		if err != nil {
			return nil, err
		}
		card, _ := res.Cardinality(lf.Property)
		p, err := ParserFor(prop, dm)
		if err != nil {
			return nil, errors.Wrapf(err, "property %s", prop.Name)
		}
		v.fields = append(v.fields, field{layout: lf, prop: prop, card: card, parser: p})
	}
	rows := make([]Resource, 0, t.Rows())
	for r := 0; r < t.Rows(); r++ {
		row, err := v.row(r)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", r+1)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (v *validator) cell(col, r int) []string {
	return v.t.Column(col).Cells[r]
}

func (v *validator) header(col int) string {
	return v.layout.Columns[col].Header
}

// single returns the one scalar of the column holding role, or "" if the
// column is absent or the cell is blank.
func (v *validator) single(role header.Role, r int) (string, error) {
	col, ok := v.layout.Attr(role)
	if !ok {
		return "", nil
	}
	vals := nonEmpty(v.cell(col, r))
	switch len(vals) {
	case 0:
		return "", nil
	case 1:
		return vals[0], nil
	}
	return "", errors.Wrapf(dspxml.ParsingErrorf("%s has %d values, expected one", role, len(vals)), "column %s", v.header(col))
}

func (v *validator) row(r int) (res Resource, err error) {
	if res.ID, err = v.required(header.ID, r); err != nil {
		return res, err
	}
	if res.Label, err = v.required(header.Label, r); err != nil {
		return res, err
	}
	if res.IRI, err = v.single(header.IRI, r); err != nil {
		return res, err
	}
	if res.ARK, err = v.single(header.ARK, r); err != nil {
		return res, err
	}
	if res.Permissions, err = v.attrPermissions(header.ResourcePermissions, r, ResourceDefault); err != nil {
		return res, err
	}
	if res.Bitstream, err = v.bitstream(r); err != nil {
		return res, err
	}
	for _, f := range v.fields {
		vals, err := v.values(f, r)
		if err != nil {
			return res, errors.Wrapf(err, "column %s", v.header(f.layout.Value))
		}
		if len(vals) > 0 {
			res.Values = append(res.Values, Field{Property: f.prop, Values: vals})
		}
	}
	return res, nil
}

func (v *validator) required(role header.Role, r int) (string, error) {
	s, err := v.single(role, r)
	if err != nil {
		return "", err
	}
	if s == "" {
		col, _ := v.layout.Attr(role)
		return "", errors.Wrapf(dspxml.ParsingErrorf("%s is empty", role), "column %s", v.header(col))
	}
	return s, nil
}

func (v *validator) attrPermissions(role header.Role, r int, def string) (string, error) {
	p, err := v.single(role, r)
	if err != nil {
		return "", err
	}
	if !v.opts.SetPermissions {
		return p, nil
	}
	if p == "" {
		return def, nil
	}
	if err := checkPermissions(p); err != nil {
		col, _ := v.layout.Attr(role)
		return "", errors.Wrapf(err, "column %s", v.header(col))
	}
	return p, nil
}

func (v *validator) bitstream(r int) (*Bitstream, error) {
	if _, ok := v.layout.Attr(header.Bitstream); !ok {
		return nil, nil
	}
	path, err := v.required(header.Bitstream, r)
	if err != nil {
		return nil, err
	}
	b := &Bitstream{Path: path}
	if b.Permissions, err = v.attrPermissions(header.BitstreamPermissions, r, PropertyDefault); err != nil {
		return nil, err
	}
	if col, ok := v.layout.Attr(header.Authorship); ok {
		b.Authorship = strings.Join(nonEmpty(v.cell(col, r)), ", ")
	}
	if b.CopyrightHolder, err = v.single(header.CopyrightHolder, r); err != nil {
		return nil, err
	}
	lic, err := v.single(header.License, r)
	if err != nil || lic == "" {
		return b, err
	}
	if b.License, err = LicenseIRI(lic); err != nil {
		col, _ := v.layout.Attr(header.License)
		return nil, errors.Wrapf(err, "column %s", v.header(col))
	}
	return b, nil
}

// values parses the scalars of a property cell and zips them with the
// side-channel cells.
func (v *validator) values(f field, r int) ([]Value, error) {
	raw := v.cell(f.layout.Value, r)
	if f.prop.Type.Kind == datamodel.KindBoolean && len(raw) > 1 {
		return nil, dspxml.ParsingErrorf("boolean property %s has %d values", f.prop.Name, len(raw))
	}
	perms, err := v.side(f.layout.Permissions, r, len(raw))
	if err != nil {
		return nil, err
	}
	comments, err := v.side(f.layout.Comment, r, len(raw))
	if err != nil {
		return nil, err
	}
	encs, err := v.side(f.layout.Encoding, r, len(raw))
	if err != nil {
		return nil, err
	}
	var vals []Value
	for i, s := range raw {
		if s == "" {
			continue
		}
		text, err := f.parser.Parse(s)
		if err != nil {
			return nil, err
		}
		val := Value{Text: text, Permissions: perms[i], Comment: comments[i], Encoding: encs[i]}
		if v.opts.SetPermissions {
			if val.Permissions == "" {
				val.Permissions = PropertyDefault
			} else if err := checkPermissions(val.Permissions); err != nil {
				return nil, err
			}
		}
		if val.Encoding != "" && !contains(Encodings, val.Encoding) {
			return nil, dspxml.ParsingErrorf("encoding %q is not one of %s", val.Encoding, strings.Join(Encodings, ", "))
		}
		if val.Encoding == "xml" {
			if err := checkXML(val.Text); err != nil {
				return nil, err
			}
		}
		vals = append(vals, val)
	}
	if n := len(vals); n < f.card.Min() || (f.card.Max() >= 0 && n > f.card.Max()) {
		return nil, dspxml.ParsingErrorf("%s has %d values but its cardinality on %s is %s", f.prop.Name, n, v.res.Name, f.card)
	}
	return vals, nil
}

// side aligns a side-channel cell with n values: a single scalar applies to
// all of them, otherwise the counts must agree.
func (v *validator) side(col, r, n int) ([]string, error) {
	out := make([]string, n)
	if col < 0 {
		return out, nil
	}
	cell := v.cell(col, r)
	switch len(cell) {
	case 0:
	case 1:
		for i := range out {
			out[i] = cell[0]
		}
	case n:
		copy(out, cell)
	default:
		return nil, errors.Wrapf(dspxml.ParsingErrorf("%d values for %d property values", len(cell), n), "column %s", v.header(col))
	}
	return out, nil
}

func checkPermissions(p string) error {
	if !contains(PermissionIDs, p) {
		return dspxml.ParsingErrorf("permissions %q is not one of %s", p, strings.Join(PermissionIDs, ", "))
	}
	return nil
}

// checkXML reports whether s is well-formed XML content.
func checkXML(s string) error {
	d := xml.NewDecoder(strings.NewReader("<text>" + s + "</text>"))
	for {
		_, err := d.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return dspxml.ParsingErrorf("text with encoding xml is not well-formed: %v", err)
		}
	}
}

func nonEmpty(ss []string) []string {
	var out []string
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
