package transform

import (
	"fmt"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/datamodel"
	"github.com/pkg/errors"
)

// Kind is an operator kind. Kinds are declared in scheduling priority: when
// several operators are ready to run, the one with the lowest Kind goes
// first.
type Kind uint8

const (
	KindReplace Kind = iota
	KindReplaceWithIRI
	KindReplaceLabelName
	KindLower
	KindUpper
	KindCombine
	KindToDate
	KindCreate
	KindAlter
	KindSeparate
	KindIdentify
)

var kindNames = [...]string{
	KindReplace:          "replace",
	KindReplaceWithIRI:   "update_with_server",
	KindReplaceLabelName: "replace_label_name",
	KindLower:            "lower",
	KindUpper:            "upper",
	KindCombine:          "combine",
	KindToDate:           "to_date",
	KindCreate:           "create",
	KindAlter:            "alter",
	KindSeparate:         "separate",
	KindIdentify:         "identify",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Operator is one column transformation. The concrete types in this package
// are the complete set; Apply dispatches on them.
type Operator interface {
	Kind() Kind
	Outputs() []string
	Inputs() []HeaderRef
}

// Lower lower-cases every scalar.
type Lower struct {
	Output string
	Input  HeaderRef
}

// Upper upper-cases every scalar.
type Upper struct {
	Output string
	Input  HeaderRef
}

// Behavior selects how many occurrences Replace substitutes.
type Behavior uint8

const (
	// Lazy replaces the first occurrence.
	Lazy Behavior = iota
	// Greedy replaces every occurrence.
	Greedy
)

// Target selects whether Replace matches substrings or whole scalars.
type Target uint8

const (
	Part Target = iota
	Whole
)

// Replace substitutes Old by New.
type Replace struct {
	Output   string
	Input    HeaderRef
	Old      string
	New      string
	Behavior Behavior
	Target   Target
}

// ReplaceLabelName replaces list-node labels by node names, using the list
// of the property named by Output.
type ReplaceLabelName struct {
	Output string
	Input  HeaderRef
}

// Combine zips two columns value by value into
// Prefix + left + Middle + right + Suffix.
type Combine struct {
	Output string
	Input  [2]HeaderRef
	Prefix string
	Middle string
	Suffix string
}

// ToDate parses scalars with the first matching pattern into a canonical
// date string.
type ToDate struct {
	Output   string
	Input    HeaderRef
	Calendar Calendar
	Patterns []DatePattern
}

// CreateKind selects what Create produces.
type CreateKind uint8

const (
	CreateInteger CreateKind = iota
	CreatePermissions
)

// Create produces a column from nothing: an integer sequence or a constant
// permissions value.
type Create struct {
	Output string
	What   CreateKind
	Start  int64
	Step   int64
	// Multiply applies Step by multiplication instead of addition.
	Multiply bool
	Value    string
}

// Alter prepends Prefix and appends Suffix to every scalar.
type Alter struct {
	Output string
	Input  HeaderRef
	Prefix string
	Suffix string
}

// Separate splits each scalar by Separator into len(Outputs) columns.
type Separate struct {
	Columns   []string
	Input     HeaderRef
	Separator string
}

// Identify maps scalars through the Key → Value columns of the sheets
// holding Resource.
type Identify struct {
	Output   string
	Input    HeaderRef
	Resource string
	Key      string
	Value    string
}

// ReplaceWithIRI maps resource ids of Resource to their IRIs.
type ReplaceWithIRI struct {
	Output   string
	Input    HeaderRef
	Resource string
}

func (Lower) Kind() Kind            { return KindLower }
func (Upper) Kind() Kind            { return KindUpper }
func (Replace) Kind() Kind          { return KindReplace }
func (ReplaceLabelName) Kind() Kind { return KindReplaceLabelName }
func (Combine) Kind() Kind          { return KindCombine }
func (ToDate) Kind() Kind           { return KindToDate }
func (Create) Kind() Kind           { return KindCreate }
func (Alter) Kind() Kind            { return KindAlter }
func (Separate) Kind() Kind         { return KindSeparate }
func (Identify) Kind() Kind         { return KindIdentify }
func (ReplaceWithIRI) Kind() Kind   { return KindReplaceWithIRI }

func (o Lower) Outputs() []string            { return []string{o.Output} }
func (o Upper) Outputs() []string            { return []string{o.Output} }
func (o Replace) Outputs() []string          { return []string{o.Output} }
func (o ReplaceLabelName) Outputs() []string { return []string{o.Output} }
func (o Combine) Outputs() []string          { return []string{o.Output} }
func (o ToDate) Outputs() []string           { return []string{o.Output} }
func (o Create) Outputs() []string           { return []string{o.Output} }
func (o Alter) Outputs() []string            { return []string{o.Output} }
func (o Separate) Outputs() []string         { return o.Columns }
func (o Identify) Outputs() []string         { return []string{o.Output} }
func (o ReplaceWithIRI) Outputs() []string   { return []string{o.Output} }

func (o Lower) Inputs() []HeaderRef            { return []HeaderRef{o.Input} }
func (o Upper) Inputs() []HeaderRef            { return []HeaderRef{o.Input} }
func (o Replace) Inputs() []HeaderRef          { return []HeaderRef{o.Input} }
func (o ReplaceLabelName) Inputs() []HeaderRef { return []HeaderRef{o.Input} }
func (o Combine) Inputs() []HeaderRef          { return o.Input[:] }
func (o ToDate) Inputs() []HeaderRef           { return []HeaderRef{o.Input} }
func (o Create) Inputs() []HeaderRef           { return nil }
func (o Alter) Inputs() []HeaderRef            { return []HeaderRef{o.Input} }
func (o Separate) Inputs() []HeaderRef         { return []HeaderRef{o.Input} }
func (o Identify) Inputs() []HeaderRef         { return []HeaderRef{o.Input} }
func (o ReplaceWithIRI) Inputs() []HeaderRef   { return []HeaderRef{o.Input} }

// IRILookup resolves resource identifiers to IRIs from a previous emission or
// a server round-trip.
type IRILookup interface {
	// HasResource reports whether any IRI is known for resource.
	HasResource(resource string) (bool, error)
	// Lookup returns the IRI stored for key under resource.
	Lookup(resource, key string) (iri string, ok bool, err error)
}

// Env is what operators may read besides their own table. It is shared
// read-only by all pipelines of a run.
type Env struct {
	Model *datamodel.DataModel
	IRIs  IRILookup
	// Foreign holds the first-pass tables of every sheet by resource name,
	// in sheet order. It is only set for the cross-sheet pass.
	Foreign map[string][]*Table
}

// Describe names an operator for error messages.
func Describe(op Operator) string {
	outs := op.Outputs()
	if len(outs) == 1 {
		return fmt.Sprintf("%s %q", op.Kind(), outs[0])
	}
	return fmt.Sprintf("%s %q", op.Kind(), outs)
}

// Apply runs op against t and returns the produced columns; t is not
// modified. An operator either produces all of its columns or fails.
func Apply(op Operator, t *Table, env *Env) ([]*DataColumn, error) {
	var (
		col  *DataColumn
		cols []*DataColumn
		err  error
	)
	switch o := op.(type) {
	case Lower:
		col, err = applyCase(o.Output, o.Input, t, toLower)
	case Upper:
		col, err = applyCase(o.Output, o.Input, t, toUpper)
	case Replace:
		col, err = applyReplace(o, t)
	case ReplaceLabelName:
		col, err = applyReplaceLabelName(o, t, env)
	case Combine:
		col, err = applyCombine(o, t)
	case ToDate:
		col, err = applyToDate(o, t)
	case Create:
		col, err = applyCreate(o, t)
	case Alter:
		col, err = applyAlter(o, t)
	case Separate:
		cols, err = applySeparate(o, t)
	case Identify:
		col, err = applyIdentify(o, t, env)
	case ReplaceWithIRI:
		col, err = applyReplaceWithIRI(o, t, env)
	default:
		return nil, dspxml.InputErrorf("unknown operator %T", op)
	}
	if err != nil {
		return nil, errors.Wrap(err, Describe(op))
	}
	if col != nil {
		cols = []*DataColumn{col}
	}
	return cols, nil
}
