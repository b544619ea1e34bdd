package parseinfo

import (
	"math/big"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/transform"
	"github.com/zclconf/go-cty/cty"
)

// reader hands out the attributes of one body and remembers which were
// read, so that done can reject the rest.
type reader struct {
	body *hclsyntax.Body
	what string
	used map[string]bool
}

func newReader(body *hclsyntax.Body, what string) *reader {
	return &reader{body: body, what: what, used: make(map[string]bool)}
}

func (r *reader) attr(name string) *hclsyntax.Attribute {
	a, ok := r.body.Attributes[name]
	if !ok {
		return nil
	}
	r.used[name] = true
	return a
}

func (r *reader) missing(name string) error {
	return dspxml.InputErrorf("%s: %s needs the attribute %q", r.body.SrcRange, r.what, name)
}

// done fails if an attribute was not read or, unless blocks are allowed, if
// the body has blocks.
func (r *reader) done(blocks ...string) error {
	for _, a := range sortedAttributes(r.body) {
		if !r.used[a.Name] {
			return dspxml.InputErrorf("%s: unknown attribute %q in %s", a.NameRange, a.Name, r.what)
		}
	}
	allowed := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		allowed[b] = true
	}
	for _, b := range r.body.Blocks {
		if !allowed[b.Type] {
			return dspxml.InputErrorf("%s: unexpected block %q in %s", b.TypeRange, b.Type, r.what)
		}
	}
	return nil
}

func (r *reader) str(name string, required bool) (string, bool, error) {
	a := r.attr(name)
	if a == nil {
		if required {
			return "", false, r.missing(name)
		}
		return "", false, nil
	}
	s, err := stringValue(a)
	return s, err == nil, err
}

func (r *reader) boolean(name string, required bool) (bool, bool, error) {
	a := r.attr(name)
	if a == nil {
		if required {
			return false, false, r.missing(name)
		}
		return false, false, nil
	}
	v, err := value(a)
	if err != nil {
		return false, false, err
	}
	if v.Type() != cty.Bool {
		return false, false, typeError(a, "a boolean", v)
	}
	return v.True(), true, nil
}

func (r *reader) integer(name string, required bool) (int64, bool, error) {
	a := r.attr(name)
	if a == nil {
		if required {
			return 0, false, r.missing(name)
		}
		return 0, false, nil
	}
	v, err := value(a)
	if err != nil {
		return 0, false, err
	}
	i, err := intValue(a, v)
	return i, err == nil, err
}

// ref reads a column reference: a string names a column, an integer is a
// 0-based position.
func (r *reader) ref(name string) (transform.HeaderRef, error) {
	a := r.attr(name)
	if a == nil {
		return transform.HeaderRef{}, r.missing(name)
	}
	v, err := value(a)
	if err != nil {
		return transform.HeaderRef{}, err
	}
	return refValue(a, v)
}

func (r *reader) refs(name string) ([]transform.HeaderRef, error) {
	a := r.attr(name)
	if a == nil {
		return nil, r.missing(name)
	}
	vals, err := listValue(a)
	if err != nil {
		return nil, err
	}
	refs := make([]transform.HeaderRef, len(vals))
	for i, v := range vals {
		if refs[i], err = refValue(a, v); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

func (r *reader) strs(name string) ([]string, bool, error) {
	a := r.attr(name)
	if a == nil {
		return nil, false, nil
	}
	vals, err := listValue(a)
	if err != nil {
		return nil, false, err
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		if v.Type() != cty.String {
			return nil, false, typeError(a, "a list of strings", v)
		}
		out[i] = v.AsString()
	}
	return out, true, nil
}

func value(a *hclsyntax.Attribute) (cty.Value, error) {
	v, diags := a.Expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, dspxml.InputErrorf("%s: %s", a.SrcRange, diags.Error())
	}
	if v.IsNull() || !v.IsWhollyKnown() {
		return cty.NilVal, dspxml.InputErrorf("%s: attribute %q has no value", a.SrcRange, a.Name)
	}
	return v, nil
}

func stringValue(a *hclsyntax.Attribute) (string, error) {
	v, err := value(a)
	if err != nil {
		return "", err
	}
	if v.Type() != cty.String {
		return "", typeError(a, "a string", v)
	}
	return v.AsString(), nil
}

func intValue(a *hclsyntax.Attribute, v cty.Value) (int64, error) {
	if v.Type() != cty.Number {
		return 0, typeError(a, "an integer", v)
	}
	i, acc := v.AsBigFloat().Int64()
	if acc != big.Exact {
		return 0, typeError(a, "an integer", v)
	}
	return i, nil
}

func refValue(a *hclsyntax.Attribute, v cty.Value) (transform.HeaderRef, error) {
	switch v.Type() {
	case cty.String:
		if v.AsString() == "" {
			return transform.HeaderRef{}, dspxml.InputErrorf("%s: empty column name in %q", a.SrcRange, a.Name)
		}
		return transform.Name(v.AsString()), nil
	case cty.Number:
		i, err := intValue(a, v)
		if err != nil {
			return transform.HeaderRef{}, err
		}
		if i < 0 {
			return transform.HeaderRef{}, dspxml.InputErrorf("%s: negative column index %d", a.SrcRange, i)
		}
		return transform.Index(int(i)), nil
	}
	return transform.HeaderRef{}, typeError(a, "a column name or index", v)
}

func listValue(a *hclsyntax.Attribute) ([]cty.Value, error) {
	v, err := value(a)
	if err != nil {
		return nil, err
	}
	t := v.Type()
	if !t.IsTupleType() && !t.IsListType() {
		return nil, typeError(a, "a list", v)
	}
	var vals []cty.Value
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		vals = append(vals, ev)
	}
	return vals, nil
}

func typeError(a *hclsyntax.Attribute, want string, v cty.Value) error {
	return dspxml.InputErrorf("%s: attribute %q must be %s, not %s", a.SrcRange, a.Name, want, v.Type().FriendlyName())
}

// isFind reports whether expr is the traversal cmd.find.
func isFind(expr hclsyntax.Expression) bool {
	tr, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() || len(tr) != 2 || tr.RootName() != "cmd" {
		return false
	}
	step, ok := tr[1].(hcl.TraverseAttr)
	return ok && step.Name == "find"
}

// sortedAttributes returns the attributes of body in source order.
func sortedAttributes(body *hclsyntax.Body) []*hclsyntax.Attribute {
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, a := range body.Attributes {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})
	return attrs
}
