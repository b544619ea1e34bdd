// Package header decides what each column of an expanded sheet is: a
// resource attribute, the bitstream or one of its attributes, a property, a
// side-channel of a property, or nothing.
package header

import (
	"fmt"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/datamodel"
	"github.com/pilosa/dspxml/parseinfo"
	"github.com/pilosa/dspxml/transform"
	"github.com/pkg/errors"
)

// Role is what a column holds.
type Role uint8

const (
	Ignored Role = iota
	ID
	Label
	ARK
	IRI
	ResourcePermissions
	Bitstream
	BitstreamPermissions
	Authorship
	License
	CopyrightHolder
	Property
	Permissions
	Comment
	Encoding
)

var roleNames = [...]string{
	Ignored:              "ignored",
	ID:                   "id",
	Label:                "label",
	ARK:                  "ark",
	IRI:                  "iri",
	ResourcePermissions:  "resource permissions",
	Bitstream:            "bitstream",
	BitstreamPermissions: "bitstream permissions",
	Authorship:           "authorship",
	License:              "license",
	CopyrightHolder:      "copyright holder",
	Property:             "property",
	Permissions:          "permissions",
	Comment:              "comment",
	Encoding:             "encoding",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("Role(%d)", r)
}

// IsResource reports whether r is an attribute of the resource itself.
func (r Role) IsResource() bool { return r >= ID && r <= ResourcePermissions }

// IsBitstream reports whether r belongs to the bitstream.
func (r Role) IsBitstream() bool { return r >= Bitstream && r <= CopyrightHolder }

// IsSideChannel reports whether r is attached to a property value.
func (r Role) IsSideChannel() bool { return r >= Permissions && r <= Encoding }

var resourceRoles = map[string]Role{
	parseinfo.ID:                   ID,
	parseinfo.Label:                Label,
	parseinfo.ARK:                  ARK,
	parseinfo.IRI:                  IRI,
	parseinfo.Permissions:          ResourcePermissions,
	parseinfo.Bitstream:            Bitstream,
	parseinfo.BitstreamPermissions: BitstreamPermissions,
	parseinfo.Authorship:           Authorship,
	parseinfo.License:              License,
	parseinfo.CopyrightHolder:      CopyrightHolder,
}

var sideRoles = map[string]Role{
	parseinfo.Permissions: Permissions,
	parseinfo.Comment:     Comment,
	parseinfo.Encoding:    Encoding,
}

// Column is one column of the table with its role. Property is set for
// property and side-channel columns.
type Column struct {
	Index    int
	Header   string
	Name     string
	Role     Role
	Property string
}

func (c Column) String() string {
	if c.Name != c.Header {
		return fmt.Sprintf("%q (as %s)", c.Header, c.Name)
	}
	return fmt.Sprintf("%q", c.Header)
}

// Field is the value column of a property and its side-channels. Positions
// are -1 when absent.
type Field struct {
	Property    string
	Value       int
	Permissions int
	Comment     int
	Encoding    int
}

// Layout is the classification of every column of a table.
type Layout struct {
	Columns []Column
	// Attrs maps the resource and bitstream roles to their column.
	Attrs map[Role]int
	// Fields are in column order.
	Fields []*Field
}

// Attr returns the column of a resource or bitstream role.
func (l *Layout) Attr(r Role) (int, bool) {
	i, ok := l.Attrs[r]
	return i, ok
}

// Field returns the field of prop.
func (l *Layout) Field(prop string) *Field {
	for _, f := range l.Fields {
		if f.Property == prop {
			return f
		}
	}
	return nil
}

type classifier struct {
	t      *transform.Table
	res    *datamodel.Resource
	layout *Layout
	fields map[string]*Field
}

// Classify assigns a role to every column of t, which holds the expanded
// columns of sheet s mapped to res.
func Classify(t *transform.Table, s *parseinfo.SheetInfo, res *datamodel.Resource) (*Layout, error) {
	c := &classifier{
		t:   t,
		res: res,
		layout: &Layout{
			Columns: make([]Column, t.Width()),
			Attrs:   make(map[Role]int),
		},
		fields: make(map[string]*Field),
	}
	for i, h := range t.Headers() {
		c.layout.Columns[i] = Column{Index: i, Header: h, Name: h}
	}
	explicit, assigned, err := c.explicitNames(s)
	if err != nil {
		return nil, err
	}
	named := make([]bool, len(c.layout.Columns))
	for i, col := range c.layout.Columns {
		switch {
		case explicit[i]:
		case assigned[i], t.IsOutput(i), parseinfo.IsReserved(col.Header):
			named[i] = true
		case s.Assignments.FindRest && res.HasProperty(col.Header):
			named[i] = true
		}
	}
	if err := c.walk(named); err != nil {
		return nil, err
	}
	if err := c.applySupplements(s); err != nil {
		return nil, err
	}
	for _, r := range []Role{ID, Label} {
		if _, ok := c.layout.Attrs[r]; !ok {
			return nil, dspxml.ParsingErrorf("the sheet has no %s column", r)
		}
	}
	return c.layout, nil
}

// explicitNames applies the assignments and marks the columns named by
// supplements, which get their role in applySupplements.
func (c *classifier) explicitNames(s *parseinfo.SheetInfo) (explicit, assigned map[int]bool, err error) {
	explicit = make(map[int]bool)
	assigned = make(map[int]bool)
	usedAs := make(map[int]string)
	mark := func(ref transform.HeaderRef, what string) (int, error) {
		i, err := c.t.ResolveIndex(ref)
		if err != nil {
			return 0, errors.Wrap(err, what)
		}
		if prev, ok := usedAs[i]; ok {
			return 0, dspxml.ParsingErrorf("column %s is used as both %s and %s", c.layout.Columns[i], prev, what)
		}
		usedAs[i] = what
		return i, nil
	}
	for target, ref := range s.Supplements.Resource {
		i, err := mark(ref, "supplement "+target)
		if err != nil {
			return nil, nil, err
		}
		explicit[i] = true
	}
	for prop, sides := range s.Supplements.Properties {
		for target, ref := range sides {
			i, err := mark(ref, "supplement "+target+" of "+prop)
			if err != nil {
				return nil, nil, err
			}
			explicit[i] = true
		}
	}
	for _, a := range s.Assignments.Columns {
		i, err := mark(a.Header, a.Property)
		if err != nil {
			return nil, nil, err
		}
		assigned[i] = true
		c.layout.Columns[i].Name = a.Property
	}
	return explicit, assigned, nil
}

type position uint8

const (
	inNothing position = iota
	inResource
	inBitstream
	inProperty
)

// walk assigns roles by name and position. A permissions column attaches to
// the resource after resource attributes, to the bitstream after the
// bitstream, and otherwise to the closest property before it; comment and
// encoding need a property before them.
func (c *classifier) walk(named []bool) error {
	ctx := inNothing
	var last *Field
	for i := range c.layout.Columns {
		col := &c.layout.Columns[i]
		if !named[i] {
			continue
		}
		switch name := col.Name; {
		case name == parseinfo.Permissions:
			switch {
			case ctx == inBitstream:
				if err := c.setAttr(col, BitstreamPermissions); err != nil {
					return err
				}
			case ctx == inProperty:
				if err := c.setSide(col, last, Permissions); err != nil {
					return err
				}
			default:
				if err := c.setAttr(col, ResourcePermissions); err != nil {
					return err
				}
			}
		case name == parseinfo.Comment || name == parseinfo.Encoding:
			if last == nil {
				return dspxml.ParsingErrorf("column %s does not follow a property column", col)
			}
			if err := c.setSide(col, last, sideRoles[name]); err != nil {
				return err
			}
		case name == parseinfo.Bitstream, name == parseinfo.Authorship, name == parseinfo.License, name == parseinfo.CopyrightHolder:
			if err := c.setAttr(col, resourceRoles[name]); err != nil {
				return err
			}
			ctx = inBitstream
		case parseinfo.IsReserved(name):
			if err := c.setAttr(col, resourceRoles[name]); err != nil {
				return err
			}
			ctx = inResource
		case c.res.HasProperty(name):
			f, err := c.addField(col, name)
			if err != nil {
				return err
			}
			last = f
			ctx = inProperty
		}
	}
	return nil
}

func (c *classifier) setAttr(col *Column, r Role) error {
	if prev, ok := c.layout.Attrs[r]; ok {
		return dspxml.ParsingErrorf("columns %s and %s are both the %s", c.layout.Columns[prev], col, r)
	}
	c.layout.Attrs[r] = col.Index
	col.Role = r
	return nil
}

func (c *classifier) addField(col *Column, prop string) (*Field, error) {
	if f, ok := c.fields[prop]; ok {
		return nil, dspxml.ParsingErrorf("columns %s and %s are both property %s", c.layout.Columns[f.Value], col, prop)
	}
	f := &Field{Property: prop, Value: col.Index, Permissions: -1, Comment: -1, Encoding: -1}
	c.fields[prop] = f
	c.layout.Fields = append(c.layout.Fields, f)
	col.Role = Property
	col.Property = prop
	return f, nil
}

func (c *classifier) setSide(col *Column, f *Field, r Role) error {
	slot := &f.Permissions
	switch r {
	case Comment:
		slot = &f.Comment
	case Encoding:
		slot = &f.Encoding
	}
	if *slot >= 0 {
		return dspxml.ParsingErrorf("property %s has two %s columns, %s and %s", f.Property, r, c.layout.Columns[*slot], col)
	}
	*slot = col.Index
	col.Role = r
	col.Property = f.Property
	return nil
}

func (c *classifier) applySupplements(s *parseinfo.SheetInfo) error {
	for target, ref := range s.Supplements.Resource {
		i, _ := c.t.ResolveIndex(ref)
		col := &c.layout.Columns[i]
		col.Name = target
		if err := c.setAttr(col, resourceRoles[target]); err != nil {
			return err
		}
	}
	for prop, sides := range s.Supplements.Properties {
		f := c.fields[prop]
		if f == nil {
			return dspxml.ParsingErrorf("supplements of %s, but the sheet has no %s column", prop, prop)
		}
		for target, ref := range sides {
			i, _ := c.t.ResolveIndex(ref)
			col := &c.layout.Columns[i]
			col.Name = target
			if err := c.setSide(col, f, sideRoles[target]); err != nil {
				return err
			}
		}
	}
	return nil
}
