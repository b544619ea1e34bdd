// Package datamodel holds the project schema a conversion is checked
// against: resource classes, their typed properties and the controlled
// vocabulary lists. A DataModel is built once and never mutated.
package datamodel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pilosa/dspxml"
)

// ValueKind is the kind of value a property holds.
type ValueKind uint8

const (
	KindText ValueKind = iota + 1
	KindDate
	KindURI
	KindGeoname
	KindDecimal
	KindColor
	KindInteger
	KindBoolean
	KindTime
	KindList
	KindRepresentation
	KindResourceLink
)

var kindNames = map[ValueKind]string{
	KindText:           "Text",
	KindDate:           "Date",
	KindURI:            "Uri",
	KindGeoname:        "Geoname",
	KindDecimal:        "Decimal",
	KindColor:          "Color",
	KindInteger:        "Integer",
	KindBoolean:        "Boolean",
	KindTime:           "Time",
	KindList:           "List",
	KindRepresentation: "Representation",
	KindResourceLink:   "ResourceLink",
}

func (k ValueKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ValueKind(%d)", k)
}

// ValueType is a property's declared value type. Target is set for
// ResourceLink and names the linked resource class; it is empty when any
// resource may be linked.
type ValueType struct {
	Kind   ValueKind
	Target string
}

func (v ValueType) String() string {
	if v.Kind == KindResourceLink {
		return "ResourceLink(" + v.Target + ")"
	}
	return v.Kind.String()
}

// Property is a typed attribute of a resource class.
type Property struct {
	Name       string
	Ontology   string
	Type       ValueType
	Labels     map[string]string
	GUIElement string
	// ListName is set iff Type.Kind is List.
	ListName string
}

// SuperClass is the base class of a resource class.
type SuperClass uint8

const (
	SuperResource SuperClass = iota
	SuperStillImageRepresentation
	SuperMovingImageRepresentation
	SuperAudioRepresentation
	SuperDocumentRepresentation
	SuperArchiveRepresentation
	SuperTextRepresentation
)

var superNames = map[string]SuperClass{
	"Resource":                  SuperResource,
	"StillImageRepresentation":  SuperStillImageRepresentation,
	"MovingImageRepresentation": SuperMovingImageRepresentation,
	"AudioRepresentation":       SuperAudioRepresentation,
	"DocumentRepresentation":    SuperDocumentRepresentation,
	"ArchiveRepresentation":     SuperArchiveRepresentation,
	"TextRepresentation":        SuperTextRepresentation,
}

func (s SuperClass) String() string {
	for name, sc := range superNames {
		if sc == s {
			return name
		}
	}
	return fmt.Sprintf("SuperClass(%d)", s)
}

// IsRepresentation reports whether resources of this class carry a
// bitstream.
func (s SuperClass) IsRepresentation() bool {
	return s != SuperResource
}

// Cardinality bounds the number of values a resource holds for a property.
type Cardinality string

const (
	ZeroToN   Cardinality = "0-n"
	ZeroToOne Cardinality = "0-1"
	One       Cardinality = "1"
	OneToN    Cardinality = "1-n"
)

// Min is the least number of values allowed.
func (c Cardinality) Min() int {
	if c == One || c == OneToN {
		return 1
	}
	return 0
}

// Max is the largest number of values allowed, or -1 if unbounded.
func (c Cardinality) Max() int {
	if c == One || c == ZeroToOne {
		return 1
	}
	return -1
}

func (c Cardinality) valid() bool {
	switch c {
	case ZeroToN, ZeroToOne, One, OneToN:
		return true
	}
	return false
}

// PropertyCardinality pairs a property name with its cardinality on a
// resource class.
type PropertyCardinality struct {
	Property    string
	Cardinality Cardinality
}

// Resource is a resource class.
type Resource struct {
	Name          string
	Ontology      string
	Labels        map[string]string
	SuperClass    SuperClass
	Cardinalities []PropertyCardinality
}

// Cardinality returns the cardinality of prop on r.
func (r *Resource) Cardinality(prop string) (Cardinality, bool) {
	prop = localName(prop)
	for _, pc := range r.Cardinalities {
		if pc.Property == prop {
			return pc.Cardinality, true
		}
	}
	return "", false
}

// HasProperty reports whether prop is declared on r.
func (r *Resource) HasProperty(prop string) bool {
	_, ok := r.Cardinality(prop)
	return ok
}

// Ontology is a named ontology of the project.
type Ontology struct {
	Name  string
	Label string
}

// DataModel is a project schema.
type DataModel struct {
	Shortcode  string
	Shortname  string
	Ontologies []Ontology
	Properties []*Property
	Resources  []*Resource
	Lists      map[string]*List

	props map[string]*Property
	res   map[string]*Resource
}

// Resource returns the resource class called name.
func (dm *DataModel) Resource(name string) (*Resource, error) {
	if r, ok := dm.res[localName(name)]; ok {
		return r, nil
	}
	return nil, dspxml.NotFoundErrorf("resource %q is not defined in the data model", name)
}

// Property returns the property called name.
func (dm *DataModel) Property(name string) (*Property, error) {
	if p, ok := dm.props[localName(name)]; ok {
		return p, nil
	}
	return nil, dspxml.NotFoundErrorf("property %q is not defined in the data model", name)
}

// List returns the list called name.
func (dm *DataModel) List(name string) (*List, error) {
	if l, ok := dm.Lists[name]; ok {
		return l, nil
	}
	return nil, dspxml.NotFoundErrorf("list %q is not defined in the data model", name)
}

// PropertyList returns the list referenced by a List property.
func (dm *DataModel) PropertyList(prop string) (*List, error) {
	p, err := dm.Property(prop)
	if err != nil {
		return nil, err
	}
	if p.Type.Kind != KindList {
		return nil, dspxml.NotFoundErrorf("property %q has value type %v, not List", prop, p.Type)
	}
	return dm.List(p.ListName)
}

// ResourceNames returns the sorted names of all resource classes.
func (dm *DataModel) ResourceNames() []string {
	names := make([]string, 0, len(dm.Resources))
	for _, r := range dm.Resources {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}

// localName strips an ontology prefix ("onto:name" or ":name").
func localName(name string) string {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}
