package transform

import (
	"math"
	"strconv"
	"strings"

	"github.com/pilosa/dspxml"
)

func toLower(s string) (string, error) { return strings.ToLower(s), nil }
func toUpper(s string) (string, error) { return strings.ToUpper(s), nil }

func applyCase(output string, input HeaderRef, t *Table, fn func(string) (string, error)) (*DataColumn, error) {
	in, err := t.Resolve(input)
	if err != nil {
		return nil, err
	}
	return mapValues(output, in, fn)
}

func applyReplace(o Replace, t *Table) (*DataColumn, error) {
	in, err := t.Resolve(o.Input)
	if err != nil {
		return nil, err
	}
	return mapValues(o.Output, in, func(v string) (string, error) {
		if o.Target == Whole {
			if v == o.Old {
				return o.New, nil
			}
			return v, nil
		}
		if o.Behavior == Greedy {
			return strings.ReplaceAll(v, o.Old, o.New), nil
		}
		return strings.Replace(v, o.Old, o.New, 1), nil
	})
}

func applyAlter(o Alter, t *Table) (*DataColumn, error) {
	if o.Prefix == "" && o.Suffix == "" {
		return nil, dspxml.InputErrorf("alter needs a prefix or a suffix")
	}
	in, err := t.Resolve(o.Input)
	if err != nil {
		return nil, err
	}
	return mapValues(o.Output, in, func(v string) (string, error) {
		return o.Prefix + v + o.Suffix, nil
	})
}

func applyCombine(o Combine, t *Table) (*DataColumn, error) {
	left, err := t.Resolve(o.Input[0])
	if err != nil {
		return nil, err
	}
	right, err := t.Resolve(o.Input[1])
	if err != nil {
		return nil, err
	}
	out := &DataColumn{Header: o.Output, Cells: make([][]string, t.Rows())}
	for r := range out.Cells {
		l, rt := left.Cells[r], right.Cells[r]
		if len(l) != len(rt) {
			return nil, dspxml.MethodErrorf(dspxml.MethodCombine,
				"row %d: %q has %d values but %q has %d", r+1, left.Header, len(l), right.Header, len(rt))
		}
		if len(l) == 0 {
			continue
		}
		vals := make([]string, len(l))
		for i := range l {
			vals[i] = o.Prefix + l[i] + o.Middle + rt[i] + o.Suffix
		}
		out.Cells[r] = vals
	}
	return out, nil
}

func applyCreate(o Create, t *Table) (*DataColumn, error) {
	out := &DataColumn{Header: o.Output, Cells: make([][]string, t.Rows())}
	switch o.What {
	case CreateInteger:
		v := o.Start
		for r := range out.Cells {
			if r > 0 {
				next, ok := stepInteger(v, o.Step, o.Multiply)
				if !ok {
					return nil, dspxml.MethodErrorf(dspxml.MethodCreate, "row %d: integer sequence overflows after %d", r+1, v)
				}
				v = next
			}
			out.Cells[r] = []string{strconv.FormatInt(v, 10)}
		}
	case CreatePermissions:
		if o.Value == "" {
			return nil, dspxml.MethodErrorf(dspxml.MethodCreate, "permissions value is empty")
		}
		for r := range out.Cells {
			out.Cells[r] = []string{o.Value}
		}
	default:
		return nil, dspxml.MethodErrorf(dspxml.MethodCreate, "unknown kind %d", o.What)
	}
	return out, nil
}

// stepInteger returns v+step or v*step; ok is false on int64 overflow.
func stepInteger(v, step int64, multiply bool) (int64, bool) {
	if !multiply {
		if (step > 0 && v > math.MaxInt64-step) || (step < 0 && v < math.MinInt64-step) {
			return 0, false
		}
		return v + step, true
	}
	if v == 0 || step == 0 {
		return 0, true
	}
	if (v == -1 && step == math.MinInt64) || (step == -1 && v == math.MinInt64) {
		return 0, false
	}
	p := v * step
	if p/step != v {
		return 0, false
	}
	return p, true
}

func applySeparate(o Separate, t *Table) ([]*DataColumn, error) {
	if o.Separator == "" {
		return nil, dspxml.InputErrorf("separate needs a separator")
	}
	n := len(o.Columns)
	in, err := t.Resolve(o.Input)
	if err != nil {
		return nil, err
	}
	outs := make([]*DataColumn, n)
	for k := range outs {
		outs[k] = &DataColumn{Header: o.Columns[k], Cells: make([][]string, t.Rows())}
	}
	for r, cell := range in.Cells {
		for _, v := range cell {
			parts := strings.Split(v, o.Separator)
			if len(parts) != n {
				return nil, dspxml.MethodErrorf(dspxml.MethodSeparate,
					"row %d: %q splits into %d parts, expected %d", r+1, v, len(parts), n)
			}
			for k, p := range parts {
				outs[k].Cells[r] = append(outs[k].Cells[r], strings.TrimSpace(p))
			}
		}
	}
	return outs, nil
}
