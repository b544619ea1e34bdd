package transform

import (
	"strings"

	"github.com/pilosa/dspxml"
	"github.com/pkg/errors"
)

// Plan is a validated, ordered set of operators for one sheet.
type Plan struct {
	ops  []Operator
	deps [][]int // deps[i] are the positions in ops that ops[i] reads from
	out  map[string]int
}

// NewPlan checks that output names are unique, that no operator reads its
// own output and that the producer graph is acyclic. Operators are ordered
// so that producers run before consumers; among operators which are ready,
// the lower Kind runs first, then the one declared first.
func NewPlan(ops []Operator) (*Plan, error) {
	producer := make(map[string]int)
	for i, op := range ops {
		outs := op.Outputs()
		if len(outs) == 0 {
			return nil, dspxml.ParsingErrorf("%s has no output", Describe(op))
		}
		for _, o := range outs {
			if o == "" {
				return nil, dspxml.ParsingErrorf("%s has an empty output name", op.Kind())
			}
			if j, ok := producer[o]; ok {
				return nil, dspxml.ParsingErrorf("output %q is produced by both %s and %s", o, Describe(ops[j]), Describe(op))
			}
			producer[o] = i
		}
	}

	deps := make([][]int, len(ops))
	for i, op := range ops {
		for _, in := range op.Inputs() {
			if in.IsIndex() {
				continue
			}
			j, ok := producer[in.Name]
			if !ok {
				continue
			}
			if j == i {
				return nil, dspxml.ParsingErrorf("%s reads its own output", Describe(op))
			}
			deps[i] = append(deps[i], j)
		}
	}

	order, err := schedule(ops, deps)
	if err != nil {
		return nil, err
	}
	p := &Plan{
		ops:  make([]Operator, len(ops)),
		deps: make([][]int, len(ops)),
		out:  make(map[string]int),
	}
	pos := make([]int, len(ops))
	for n, i := range order {
		pos[i] = n
	}
	for n, i := range order {
		p.ops[n] = ops[i]
		for _, j := range deps[i] {
			p.deps[n] = append(p.deps[n], pos[j])
		}
		for _, o := range ops[i].Outputs() {
			p.out[o] = n
		}
	}
	return p, nil
}

// schedule is Kahn's algorithm picking the ready operator with the lowest
// (Kind, declaration position).
func schedule(ops []Operator, deps [][]int) ([]int, error) {
	pending := make([]int, len(ops))
	users := make([][]int, len(ops))
	for i, ds := range deps {
		pending[i] = len(ds)
		for _, j := range ds {
			users[j] = append(users[j], i)
		}
	}
	done := make([]bool, len(ops))
	order := make([]int, 0, len(ops))
	for len(order) < len(ops) {
		next := -1
		for i := range ops {
			if done[i] || pending[i] > 0 {
				continue
			}
			if next < 0 || ops[i].Kind() < ops[next].Kind() {
				next = i
			}
		}
		if next < 0 {
			var cyc []string
			for i, op := range ops {
				if !done[i] {
					cyc = append(cyc, Describe(op))
				}
			}
			return nil, dspxml.ParsingErrorf("operators form a cycle: %s", strings.Join(cyc, ", "))
		}
		done[next] = true
		order = append(order, next)
		for _, u := range users[next] {
			pending[u]--
		}
	}
	return order, nil
}

// Ops returns the operators in execution order.
func (p *Plan) Ops() []Operator {
	if p == nil {
		return nil
	}
	return p.ops
}

// Len is the number of operators.
func (p *Plan) Len() int { return len(p.Ops()) }

// Outputs returns every column name the plan produces, in execution order.
func (p *Plan) Outputs() []string {
	var outs []string
	for _, op := range p.Ops() {
		outs = append(outs, op.Outputs()...)
	}
	return outs
}

// Produces reports whether some operator outputs name.
func (p *Plan) Produces(name string) bool {
	if p == nil {
		return false
	}
	_, ok := p.out[name]
	return ok
}

// Producer returns the operator producing name.
func (p *Plan) Producer(name string) (Operator, bool) {
	if p == nil {
		return nil, false
	}
	i, ok := p.out[name]
	if !ok {
		return nil, false
	}
	return p.ops[i], true
}

// Split divides the plan into the operators which only need their own
// sheet and those which need the first-pass tables of other sheets: every
// identify, every update_with_server whose resource env cannot resolve, and
// everything that depends on one of these. Both halves keep plan order.
func (p *Plan) Split(env *Env) (local, cross []Operator, err error) {
	isCross := make([]bool, p.Len())
	for n, op := range p.Ops() {
		switch o := op.(type) {
		case Identify:
			isCross[n] = true
		case ReplaceWithIRI:
			ok, err := o.resolvedLocally(env)
			if err != nil {
				return nil, nil, errors.Wrap(err, Describe(op))
			}
			isCross[n] = !ok
		}
		for _, d := range p.deps[n] {
			if isCross[d] {
				isCross[n] = true
			}
		}
		if isCross[n] {
			cross = append(cross, op)
		} else {
			local = append(local, op)
		}
	}
	return local, cross, nil
}

// Run applies ops in order, appending their columns to t.
func Run(ops []Operator, t *Table, env *Env) error {
	for _, op := range ops {
		cols, err := Apply(op, t, env)
		if err != nil {
			return err
		}
		if err := t.Append(cols...); err != nil {
			return errors.Wrap(err, Describe(op))
		}
	}
	return nil
}
