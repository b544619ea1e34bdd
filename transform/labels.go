package transform

import (
	"github.com/pilosa/dspxml"
)

// applyReplaceLabelName maps labels to node names. A scalar which already is
// a node name is kept, so applying the operator twice changes nothing.
func applyReplaceLabelName(o ReplaceLabelName, t *Table, env *Env) (*DataColumn, error) {
	if env == nil || env.Model == nil {
		return nil, dspxml.InputErrorf("replace_label_name needs a data model")
	}
	list, err := env.Model.PropertyList(o.Output)
	if err != nil {
		return nil, err
	}
	in, err := t.Resolve(o.Input)
	if err != nil {
		return nil, err
	}
	return mapValues(o.Output, in, func(v string) (string, error) {
		if v == "" || list.HasNode(v) {
			return v, nil
		}
		if name, ok := list.NameForLabel(v); ok {
			return name, nil
		}
		return v, nil
	})
}
