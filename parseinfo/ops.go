package parseinfo

import (
	"sort"
	"strconv"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/transform"
)

// labelCount is how many labels each transformation block takes; the last
// label is the output column, except for separate.
var labelCount = map[string]int{
	"lower":              1,
	"upper":              1,
	"replace":            1,
	"replace_label_name": 1,
	"combine":            1,
	"to_date":            1,
	"alter":              1,
	"identify":           1,
	"update_with_server": 1,
	"create":             2,
	"separate":           0,
}

func loadTransform(body *hclsyntax.Body) ([]transform.Operator, error) {
	if attrs := sortedAttributes(body); len(attrs) > 0 {
		return nil, dspxml.InputErrorf("%s: transform takes blocks, found attribute %q", attrs[0].NameRange, attrs[0].Name)
	}
	var ops []transform.Operator
	for _, b := range body.Blocks {
		n, ok := labelCount[b.Type]
		if !ok {
			return nil, dspxml.InputErrorf("%s: unknown transformation %q", b.TypeRange, b.Type)
		}
		if len(b.Labels) != n {
			return nil, dspxml.InputErrorf("%s: %s takes %d label(s), found %d", b.TypeRange, b.Type, n, len(b.Labels))
		}
		out := ""
		if n > 0 {
			out = b.Labels[n-1]
		}
		op, err := loadOperator(b, out)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func loadOperator(b *hclsyntax.Block, out string) (transform.Operator, error) {
	r := newReader(b.Body, b.Type+" "+strconv.Quote(out))
	var (
		op  transform.Operator
		err error
	)
	switch b.Type {
	case "lower":
		o := transform.Lower{Output: out}
		o.Input, err = r.ref("input")
		op = o
	case "upper":
		o := transform.Upper{Output: out}
		o.Input, err = r.ref("input")
		op = o
	case "replace":
		op, err = loadReplace(r, out)
	case "replace_label_name":
		o := transform.ReplaceLabelName{Output: out}
		o.Input, err = r.ref("input")
		op = o
	case "combine":
		op, err = loadCombine(r, out)
	case "to_date":
		op, err = loadToDate(r, out)
	case "alter":
		o := transform.Alter{Output: out}
		if o.Input, err = r.ref("input"); err != nil {
			break
		}
		var pre, suf bool
		if o.Prefix, pre, err = r.str("prefix", false); err != nil {
			break
		}
		if o.Suffix, suf, err = r.str("suffix", false); err != nil {
			break
		}
		if !pre && !suf {
			err = dspxml.InputErrorf("%s: alter needs a prefix or a suffix", b.TypeRange)
		}
		op = o
	case "create":
		op, err = loadCreate(r, b.Labels[0], out)
	case "identify":
		op, err = loadIdentify(r, out)
	case "update_with_server":
		o := transform.ReplaceWithIRI{Output: out}
		if o.Input, err = r.ref("input"); err != nil {
			break
		}
		o.Resource, _, err = r.str("resource", true)
		op = o
	case "separate":
		op, err = loadSeparate(r)
	}
	if err != nil {
		return nil, err
	}
	blocks := []string(nil)
	if b.Type == "to_date" {
		blocks = []string{"pattern"}
	}
	if err := r.done(blocks...); err != nil {
		return nil, err
	}
	return op, nil
}

func loadReplace(r *reader, out string) (transform.Operator, error) {
	o := transform.Replace{Output: out}
	var err error
	if o.Input, err = r.ref("input"); err != nil {
		return nil, err
	}
	if o.Old, _, err = r.str("old", true); err != nil {
		return nil, err
	}
	if o.Old == "" {
		return nil, dspxml.InputErrorf("%s: replace %q: old must not be empty", r.body.SrcRange, out)
	}
	if o.New, _, err = r.str("new", true); err != nil {
		return nil, err
	}
	behavior, _, err := r.str("behavior", false)
	if err != nil {
		return nil, err
	}
	switch behavior {
	case "", "lazy":
	case "greedy":
		o.Behavior = transform.Greedy
	default:
		return nil, dspxml.InputErrorf("%s: behavior must be lazy or greedy, not %q", r.body.SrcRange, behavior)
	}
	target, _, err := r.str("target", false)
	if err != nil {
		return nil, err
	}
	switch target {
	case "", "part":
	case "whole":
		o.Target = transform.Whole
	default:
		return nil, dspxml.InputErrorf("%s: target must be part or whole, not %q", r.body.SrcRange, target)
	}
	return o, nil
}

func loadCombine(r *reader, out string) (transform.Operator, error) {
	o := transform.Combine{Output: out}
	refs, err := r.refs("input")
	if err != nil {
		return nil, err
	}
	if len(refs) != 2 {
		return nil, dspxml.InputErrorf("%s: combine %q needs exactly two inputs, found %d", r.body.SrcRange, out, len(refs))
	}
	copy(o.Input[:], refs)
	if o.Prefix, _, err = r.str("prefix", false); err != nil {
		return nil, err
	}
	if o.Suffix, _, err = r.str("suffix", false); err != nil {
		return nil, err
	}
	sep, hasSep, err := r.str("separator", false)
	if err != nil {
		return nil, err
	}
	mid, hasMid, err := r.str("middle", false)
	if err != nil {
		return nil, err
	}
	if hasSep && hasMid {
		return nil, dspxml.InputErrorf("%s: combine %q sets both separator and middle", r.body.SrcRange, out)
	}
	o.Middle = sep + mid
	return o, nil
}

func loadToDate(r *reader, out string) (transform.Operator, error) {
	o := transform.ToDate{Output: out}
	var err error
	if o.Input, err = r.ref("input"); err != nil {
		return nil, err
	}
	cal, _, err := r.str("calendar_type", true)
	if err != nil {
		return nil, err
	}
	if o.Calendar, err = transform.ParseCalendar(cal); err != nil {
		return nil, err
	}
	type numbered struct {
		n int
		p transform.DatePattern
	}
	var pats []numbered
	seen := make(map[int]bool)
	for _, b := range r.body.Blocks {
		if b.Type != "pattern" {
			continue
		}
		if len(b.Labels) != 1 {
			return nil, dspxml.InputErrorf("%s: pattern block needs one numeric label", b.TypeRange)
		}
		n, err := strconv.Atoi(b.Labels[0])
		if err != nil {
			return nil, dspxml.InputErrorf("%s: pattern label %q is not a number", b.LabelRanges[0], b.Labels[0])
		}
		if seen[n] {
			return nil, dspxml.InputErrorf("%s: pattern %d is defined twice", b.LabelRanges[0], n)
		}
		seen[n] = true
		pr := newReader(b.Body, "pattern "+b.Labels[0])
		var p transform.DatePattern
		if p.Pattern, _, err = pr.str("pattern", true); err != nil {
			return nil, err
		}
		if p.Epoch, _, err = pr.str("epoch", false); err != nil {
			return nil, err
		}
		if err := pr.done(); err != nil {
			return nil, err
		}
		if err := transform.ValidatePattern(p); err != nil {
			return nil, err
		}
		pats = append(pats, numbered{n, p})
	}
	if len(pats) == 0 {
		return nil, dspxml.InputErrorf("%s: to_date %q needs at least one pattern block", r.body.SrcRange, out)
	}
	sort.Slice(pats, func(i, j int) bool { return pats[i].n < pats[j].n })
	for _, np := range pats {
		o.Patterns = append(o.Patterns, np.p)
	}
	return o, nil
}

func loadCreate(r *reader, kind, out string) (transform.Operator, error) {
	o := transform.Create{Output: out}
	var err error
	switch kind {
	case "integer":
		o.What = transform.CreateInteger
		if o.Start, _, err = r.integer("start", false); err != nil {
			return nil, err
		}
		var ok bool
		if o.Step, ok, err = r.integer("step", false); err != nil {
			return nil, err
		} else if !ok {
			o.Step = 1
		}
		op, _, err := r.str("operation", false)
		if err != nil {
			return nil, err
		}
		switch op {
		case "", "+":
		case "*":
			o.Multiply = true
		default:
			return nil, dspxml.InputErrorf("%s: operation must be + or *, not %q", r.body.SrcRange, op)
		}
	case "permissions":
		o.What = transform.CreatePermissions
		if o.Value, _, err = r.str("value", true); err != nil {
			return nil, err
		}
		if o.Value == "" {
			return nil, dspxml.InputErrorf("%s: create permissions %q: value must not be empty", r.body.SrcRange, out)
		}
	default:
		return nil, dspxml.InputErrorf("%s: create kind must be integer or permissions, not %q", r.body.SrcRange, kind)
	}
	return o, nil
}

func loadIdentify(r *reader, out string) (transform.Operator, error) {
	o := transform.Identify{Output: out}
	var err error
	if o.Input, err = r.ref("input"); err != nil {
		return nil, err
	}
	if o.Resource, _, err = r.str("resource", true); err != nil {
		return nil, err
	}
	ex, hasEx, err := r.strs("exchange")
	if err != nil {
		return nil, err
	}
	key, hasKey, err := r.str("key", false)
	if err != nil {
		return nil, err
	}
	val, hasVal, err := r.str("value", false)
	if err != nil {
		return nil, err
	}
	switch {
	case hasEx && (hasKey || hasVal):
		return nil, dspxml.InputErrorf("%s: identify %q sets both exchange and key/value", r.body.SrcRange, out)
	case hasEx:
		if len(ex) != 2 {
			return nil, dspxml.InputErrorf("%s: identify %q: exchange needs [key, value]", r.body.SrcRange, out)
		}
		o.Key, o.Value = ex[0], ex[1]
	case hasKey && hasVal:
		o.Key, o.Value = key, val
	default:
		return nil, dspxml.InputErrorf("%s: identify %q needs key and value or exchange", r.body.SrcRange, out)
	}
	return o, nil
}

func loadSeparate(r *reader) (transform.Operator, error) {
	var (
		o   transform.Separate
		err error
	)
	if o.Input, err = r.ref("input"); err != nil {
		return nil, err
	}
	if o.Separator, _, err = r.str("separator", true); err != nil {
		return nil, err
	}
	if o.Separator == "" {
		return nil, dspxml.InputErrorf("%s: separate: separator must not be empty", r.body.SrcRange)
	}
	outs, ok, err := r.strs("outputs")
	if err != nil {
		return nil, err
	}
	if !ok || len(outs) == 0 {
		return nil, dspxml.InputErrorf("%s: separate needs a non-empty outputs list", r.body.SrcRange)
	}
	o.Columns = outs
	return o, nil
}
