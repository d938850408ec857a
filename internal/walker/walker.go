// Package walker fixes field values one at a time against a decision tree
// branch, backtracking when a field has no value left that is consistent
// with the fields already fixed.
package walker

import (
	"iter"
	"slices"

	"github.com/roach88/datagen/internal/combination"
	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/restrictions"
	"github.com/roach88/datagen/internal/tree"
)

// Walker produces the rows of decision tree branches. It holds only
// read-only state, so one Walker may walk several branches concurrently.
type Walker struct {
	tree     *tree.DecisionTree
	observer Observer
	perField int
	order    []ir.Field
}

// Option configures a Walker.
type Option func(*Walker)

// WithObserver installs an event hook. The default ignores events.
func WithObserver(o Observer) Option {
	return func(w *Walker) {
		if o != nil {
			w.observer = o
		}
	}
}

// WithValuesPerField caps how many values each field cursor pulls. Zero
// or less means no cap.
func WithValuesPerField(n int) Option {
	return func(w *Walker) {
		w.perField = n
	}
}

// WithOrder fixes the listed fields first, in the given order. Unlisted
// fields follow in declaration order.
func WithOrder(fields ...ir.Field) Option {
	return func(w *Walker) {
		w.order = fields
	}
}

// New creates a walker over t.
func New(t *tree.DecisionTree, opts ...Option) *Walker {
	w := &Walker{tree: t, observer: NopObserver{}}
	for _, opt := range opts {
		opt(w)
	}
	w.order = fieldOrder(w.order, t.Fields)
	return w
}

func fieldOrder(preferred, declared []ir.Field) []ir.Field {
	out := make([]ir.Field, 0, len(declared))
	for _, f := range preferred {
		if slices.Contains(declared, f) && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	for _, f := range declared {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// Order returns the order fields are fixed in.
func (w *Walker) Order() []ir.Field {
	return slices.Clone(w.order)
}

// Walk produces the rows of one branch. Fields linked by relations are
// walked together; the resulting independent groups are composed by
// strategy. Groups holding unique fields advance together, row by row, and
// strategy varies them first; the walk ends when any of them runs out. An
// unsupported restriction combination is yielded as an error and ends the
// walk.
func (w *Walker) Walk(b tree.Branch, strategy combination.Strategy) iter.Seq2[ir.DataBag, error] {
	return func(yield func(ir.DataBag, error) bool) {
		if len(w.order) == 0 {
			return
		}
		specs, ok, err := w.tree.Specs(b)
		if err != nil {
			yield(ir.DataBag{}, err)
			return
		}
		if !ok {
			return
		}

		var (
			used  = make(map[ir.Field]map[string]bool)
			keyed []iter.Seq2[ir.DataBag, error]
			free  []iter.Seq2[ir.DataBag, error]
		)
		for _, g := range Groups(w.order, b.Relations) {
			rels := relationsWithin(g, b.Relations)
			if g, ok := uniqueFirst(g, specs); ok {
				keyed = append(keyed, w.walkGroup(g, specs, rels, used))
				continue
			}
			free = append(free, w.walkGroup(g, specs, rels, nil))
		}

		rows := strategy.Permute(free)
		if len(keyed) > 0 {
			rows = combination.Keyed(strategy, combination.Zip(keyed), free)
		}
		for row, err := range rows {
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// uniqueFirst moves the group's unique fields to the front, keeping the
// relative order of the rest. It reports whether the group has any.
func uniqueFirst(group []ir.Field, specs map[ir.Field]restrictions.FieldSpec) ([]ir.Field, bool) {
	var unique, rest []ir.Field
	for _, f := range group {
		if spec, ok := specs[f]; ok && spec.IsUnique() {
			unique = append(unique, f)
		} else {
			rest = append(rest, f)
		}
	}
	if len(unique) == 0 {
		return group, false
	}
	return append(unique, rest...), true
}

// walkGroup is the reductive walk over fields, in order. The stack holds one
// FixedField per fixed field; backtracking pops exhausted cursors and
// advances the one below.
//
// With used set, the group leads with its unique fields. Their values are
// recorded in used as rows are emitted and never drawn again, and after
// each row the walk moves the first field on, so every row brings fresh
// values for all of them.
func (w *Walker) walkGroup(fields []ir.Field, specs map[ir.Field]restrictions.FieldSpec, relations []tree.Relation, used map[ir.Field]map[string]bool) iter.Seq2[ir.DataBag, error] {
	return func(yield func(ir.DataBag, error) bool) {
		var stack []*FixedField
		defer func() {
			for _, f := range stack {
				f.close()
			}
		}()
		fixed := make(map[ir.Field]ir.IRValue, len(fields))

		spec, ok, err := w.specFor(fields[0], specs, relations, fixed)
		if err != nil {
			yield(ir.DataBag{}, err)
			return
		}
		if !ok {
			w.observer.Unsatisfiable(fields[0])
			return
		}
		push := func(f ir.Field, spec restrictions.FieldSpec) {
			ff := newFixedField(f, spec, w.perField)
			if used != nil && spec.IsUnique() {
				ff.skip = func(v ir.IRValue) bool { return used[f][ir.Key(v)] }
			}
			stack = append(stack, ff)
		}
		push(fields[0], spec)

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			delete(fixed, top.field)

			v, ok := top.advance()
			if !ok {
				top.close()
				stack = stack[:len(stack)-1]
				w.observer.Backtracked(top.field)
				continue
			}
			w.observer.ValuePulled(top.field, v)
			fixed[top.field] = v

			if len(stack) == len(fields) {
				if !yield(row(stack), nil) {
					return
				}
				if used != nil {
					markUsed(used, stack)
					for _, f := range stack[1:] {
						f.close()
						delete(fixed, f.field)
					}
					stack = stack[:1]
				}
				continue
			}

			// Forward check: every unfixed field must keep a value.
			var nextSpec restrictions.FieldSpec
			consistent := true
			for i := len(stack); i < len(fields); i++ {
				s, ok, err := w.specFor(fields[i], specs, relations, fixed)
				if err != nil {
					yield(ir.DataBag{}, err)
					return
				}
				if !ok {
					w.observer.Unsatisfiable(fields[i])
					consistent = false
					break
				}
				if i == len(stack) {
					nextSpec = s
				}
			}
			if !consistent {
				continue
			}
			push(fields[len(stack)], nextSpec)
		}
	}
}

// specFor is f's branch spec narrowed by every relation whose other side is
// already fixed.
func (w *Walker) specFor(f ir.Field, specs map[ir.Field]restrictions.FieldSpec, relations []tree.Relation, fixed map[ir.Field]ir.IRValue) (restrictions.FieldSpec, bool, error) {
	spec, ok := specs[f]
	if !ok {
		spec = restrictions.Unconstrained()
	}
	for _, r := range relations {
		switch {
		case r.Field == f:
		case r.Other == f:
			r = r.Converse()
		default:
			continue
		}
		other, ok := fixed[r.Other]
		if !ok {
			continue
		}
		reduced, err := r.Reduce(other)
		if err != nil {
			return restrictions.FieldSpec{}, false, restrictions.WithField(err, f.Name)
		}
		narrow, ok := reduced.Get()
		if !ok {
			return restrictions.FieldSpec{}, false, nil
		}
		res, err := spec.Intersect(narrow)
		if err != nil {
			return restrictions.FieldSpec{}, false, restrictions.WithField(err, f.Name)
		}
		if spec, ok = res.Get(); !ok {
			return restrictions.FieldSpec{}, false, nil
		}
	}
	return spec, true, nil
}

// markUsed records the non-null values of the stack's unique fields.
func markUsed(used map[ir.Field]map[string]bool, stack []*FixedField) {
	for _, f := range stack {
		if !f.spec.IsUnique() || ir.IsNull(f.current) {
			continue
		}
		if used[f.field] == nil {
			used[f.field] = make(map[string]bool)
		}
		used[f.field][ir.Key(f.current)] = true
	}
}

func row(stack []*FixedField) ir.DataBag {
	var bag ir.DataBag
	for _, f := range stack {
		bag = bag.With(f.field, f.current, ir.Provenance{
			Spec:  f.spec.String(),
			Value: f.CurrentSpec().String(),
		})
	}
	return bag
}
