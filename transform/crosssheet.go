package transform

import (
	"github.com/pilosa/dspxml"
	"github.com/pkg/errors"
)

// exchange builds a key → value mapping from the foreign tables of resource.
// Key and value cells are zipped; a single value applies to every key. The
// first mapping of a key wins.
func exchange(env *Env, resource, key, value string) (map[string]string, error) {
	if env == nil || env.Foreign == nil {
		return nil, dspxml.ParsingErrorf("resource %q can only be resolved in the cross-sheet pass", resource)
	}
	tables := env.Foreign[resource]
	if len(tables) == 0 {
		return nil, dspxml.NotFoundErrorf("no sheet maps resource %q", resource)
	}
	m := make(map[string]string)
	for _, ft := range tables {
		kc, err := ft.Resolve(Name(key))
		if err != nil {
			return nil, errors.Wrapf(err, "key column of %s", resource)
		}
		vc, err := ft.Resolve(Name(value))
		if err != nil {
			return nil, errors.Wrapf(err, "value column of %s", resource)
		}
		for r := range kc.Cells {
			keys, vals := kc.Cells[r], vc.Cells[r]
			if len(vals) == 0 {
				continue
			}
			if len(vals) != 1 && len(vals) != len(keys) {
				return nil, dspxml.MethodErrorf(dspxml.MethodIdentify,
					"%s row %d: %d keys but %d values", resource, r+1, len(keys), len(vals))
			}
			for i, k := range keys {
				v := vals[0]
				if len(vals) > 1 {
					v = vals[i]
				}
				if _, ok := m[k]; !ok {
					m[k] = v
				}
			}
		}
	}
	return m, nil
}

func applyIdentify(o Identify, t *Table, env *Env) (*DataColumn, error) {
	in, err := t.Resolve(o.Input)
	if err != nil {
		return nil, err
	}
	m, err := exchange(env, o.Resource, o.Key, o.Value)
	if err != nil {
		return nil, err
	}
	return mapValues(o.Output, in, func(v string) (string, error) {
		if mapped, ok := m[v]; ok {
			return mapped, nil
		}
		return v, nil
	})
}

// resolvedLocally reports whether the IRIs of o.Resource are already known
// without looking at other sheets.
func (o ReplaceWithIRI) resolvedLocally(env *Env) (bool, error) {
	if env == nil || env.IRIs == nil {
		return false, nil
	}
	return env.IRIs.HasResource(o.Resource)
}

func applyReplaceWithIRI(o ReplaceWithIRI, t *Table, env *Env) (*DataColumn, error) {
	in, err := t.Resolve(o.Input)
	if err != nil {
		return nil, err
	}
	local, err := o.resolvedLocally(env)
	if err != nil {
		return nil, err
	}
	if local {
		return mapValues(o.Output, in, func(v string) (string, error) {
			iri, ok, err := env.IRIs.Lookup(o.Resource, v)
			if err != nil {
				return "", err
			}
			if ok {
				return iri, nil
			}
			return v, nil
		})
	}
	m, err := exchange(env, o.Resource, "id", "iri")
	if err != nil {
		return nil, err
	}
	return mapValues(o.Output, in, func(v string) (string, error) {
		if iri, ok := m[v]; ok {
			return iri, nil
		}
		return v, nil
	})
}
