// Package transform implements the column pipeline: a table of split cells
// per sheet, the closed set of column operators, and the plan which
// schedules them.
package transform

import (
	"strconv"
	"strings"

	"github.com/pilosa/dspxml"
	"github.com/pkg/errors"
)

// HeaderRef refers to a column either by header name or by its 0-based
// position in the source sheet.
type HeaderRef struct {
	Name  string
	Index int
	isIdx bool
}

// Name returns a HeaderRef naming a column.
func Name(name string) HeaderRef { return HeaderRef{Name: name} }

// Index returns a HeaderRef to the column originally at position i.
func Index(i int) HeaderRef { return HeaderRef{Index: i, isIdx: true} }

// IsIndex reports whether h is positional.
func (h HeaderRef) IsIndex() bool { return h.isIdx }

func (h HeaderRef) String() string {
	if h.isIdx {
		return "#" + strconv.Itoa(h.Index)
	}
	return strconv.Quote(h.Name)
}

// DataColumn is a named column. Each cell holds the scalars obtained by
// splitting the raw cell by the configured separator.
type DataColumn struct {
	Header string
	Cells  [][]string
}

// SplitCell splits a raw cell by sep. Scalars are trimmed; a blank cell has
// no scalars.
func SplitCell(raw, sep string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if sep == "" {
		return []string{strings.TrimSpace(raw)}
	}
	parts := strings.Split(raw, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Table is the pipeline state of one sheet. Columns are only ever appended;
// a column is not modified once it is part of a table.
type Table struct {
	columns  []*DataColumn
	source   int
	rows     int
	outputs  map[string]int
	assigned map[string]HeaderRef
}

// NewTable builds a table from a header row and data rows. Short rows are
// padded; cells are split by sep.
func NewTable(headers []string, rows [][]string, sep string) *Table {
	t := &Table{
		source:   len(headers),
		rows:     len(rows),
		outputs:  make(map[string]int),
		assigned: make(map[string]HeaderRef),
	}
	for c, h := range headers {
		col := &DataColumn{Header: strings.TrimSpace(h), Cells: make([][]string, len(rows))}
		for r, row := range rows {
			if c < len(row) {
				col.Cells[r] = SplitCell(row[c], sep)
			}
		}
		t.columns = append(t.columns, col)
	}
	return t
}

// Assign records that the property (or reserved name) target is read from
// the column ref, so that operators can refer to the column by target.
func (t *Table) Assign(target string, ref HeaderRef) {
	t.assigned[target] = ref
}

// Assigned returns the column reference assigned to target.
func (t *Table) Assigned(target string) (HeaderRef, bool) {
	ref, ok := t.assigned[target]
	return ref, ok
}

// Rows is the number of data rows.
func (t *Table) Rows() int { return t.rows }

// Width is the current number of columns.
func (t *Table) Width() int { return len(t.columns) }

// SourceWidth is the number of columns read from the sheet.
func (t *Table) SourceWidth() int { return t.source }

// Column returns the i-th column in table order.
func (t *Table) Column(i int) *DataColumn { return t.columns[i] }

// Columns returns all columns in table order.
func (t *Table) Columns() []*DataColumn { return t.columns }

// IsOutput reports whether column i was produced by an operator.
func (t *Table) IsOutput(i int) bool { return i >= t.source }

// Headers returns the current headers in table order.
func (t *Table) Headers() []string {
	hs := make([]string, len(t.columns))
	for i, c := range t.columns {
		hs[i] = c.Header
	}
	return hs
}

// Source returns the column originally at position i of the sheet.
func (t *Table) Source(i int) (*DataColumn, error) {
	if i < 0 || i >= t.source {
		return nil, dspxml.ParsingErrorf("column index %d is out of range, the sheet has %d columns", i, t.source)
	}
	return t.columns[i], nil
}

// Resolve finds the column ref refers to. Names are matched against operator
// outputs, then source headers, then assignment targets.
func (t *Table) Resolve(ref HeaderRef) (*DataColumn, error) {
	i, err := t.resolve(ref, true)
	if err != nil {
		return nil, err
	}
	return t.columns[i], nil
}

// ResolveIndex is like Resolve but returns the column position.
func (t *Table) ResolveIndex(ref HeaderRef) (int, error) {
	return t.resolve(ref, true)
}

func (t *Table) resolve(ref HeaderRef, viaAssignment bool) (int, error) {
	if ref.isIdx {
		if _, err := t.Source(ref.Index); err != nil {
			return 0, err
		}
		return ref.Index, nil
	}
	if i, ok := t.outputs[ref.Name]; ok {
		return i, nil
	}
	found := -1
	for i := 0; i < t.source; i++ {
		if t.columns[i].Header != ref.Name {
			continue
		}
		if found >= 0 {
			return 0, dspxml.ParsingErrorf("column %q is ambiguous, it appears at %d and %d", ref.Name, found, i)
		}
		found = i
	}
	if found >= 0 {
		return found, nil
	}
	if viaAssignment {
		if a, ok := t.assigned[ref.Name]; ok {
			return t.resolve(a, false)
		}
	}
	return 0, dspxml.ParsingErrorf("unknown input column %v", ref)
}

// Append adds operator output columns to the table.
func (t *Table) Append(cols ...*DataColumn) error {
	for _, c := range cols {
		if len(c.Cells) != t.rows {
			return dspxml.ParsingErrorf("column %q has %d rows, the table has %d", c.Header, len(c.Cells), t.rows)
		}
		if _, ok := t.outputs[c.Header]; ok {
			return dspxml.ParsingErrorf("column %q is produced twice", c.Header)
		}
	}
	for _, c := range cols {
		t.outputs[c.Header] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return nil
}

// Snapshot returns a read-only view of the table as it is now. Columns
// appended to t afterwards are not visible through the snapshot.
func (t *Table) Snapshot() *Table {
	s := &Table{
		columns:  append([]*DataColumn(nil), t.columns...),
		source:   t.source,
		rows:     t.rows,
		outputs:  make(map[string]int, len(t.outputs)),
		assigned: make(map[string]HeaderRef, len(t.assigned)),
	}
	for k, v := range t.outputs {
		s.outputs[k] = v
	}
	for k, v := range t.assigned {
		s.assigned[k] = v
	}
	return s
}

// mapValues applies fn to every scalar of col.
func mapValues(header string, col *DataColumn, fn func(string) (string, error)) (*DataColumn, error) {
	out := &DataColumn{Header: header, Cells: make([][]string, len(col.Cells))}
	for r, cell := range col.Cells {
		if cell == nil {
			continue
		}
		vals := make([]string, len(cell))
		for i, v := range cell {
			nv, err := fn(v)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d", r+1)
			}
			vals[i] = nv
		}
		out.Cells[r] = vals
	}
	return out, nil
}
