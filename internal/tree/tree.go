package tree

import (
	"iter"
	"slices"

	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/restrictions"
)

// DecisionTree is the normalised form of a profile: a root ConstraintNode
// (AND) whose DecisionNodes (OR) hold alternative ConstraintNodes.
//
// INVARIANTS:
//   - every field referenced by an Atomic or Relation is declared
//   - Not and If no longer occur; negation has been pushed into atomics
//   - a nil Root means the profile has no satisfiable branch
type DecisionTree struct {
	Root *ConstraintNode

	// Fields are the declared fields in declaration order.
	Fields []ir.Field

	// Violated names the rule negated to build this tree; empty for the
	// tree of valid rows.
	Violated string

	base map[ir.Field]restrictions.FieldSpec
}

// Base returns the spec implied by f's declaration alone.
func (t *DecisionTree) Base(f ir.Field) restrictions.FieldSpec {
	if spec, ok := t.base[f]; ok {
		return spec
	}
	return restrictions.Unconstrained()
}

// ConstraintNode is an AND: all atomics and relations hold, and one option
// is chosen from every decision.
type ConstraintNode struct {
	Atomics   []Atomic
	Relations []Relation
	Decisions []*DecisionNode
}

// DecisionNode is an OR over alternative ConstraintNodes.
type DecisionNode struct {
	Options []*ConstraintNode
}

// Atomic is a restriction on one field together with the constraint text it
// came from.
type Atomic struct {
	Field       ir.Field
	Restriction restrictions.Restriction
	Source      string
}

// IsLeaf reports whether the node has no decisions below it.
func (n *ConstraintNode) IsLeaf() bool {
	return len(n.Decisions) == 0
}

// merge returns the AND of two nodes.
func merge(a, b *ConstraintNode) *ConstraintNode {
	return &ConstraintNode{
		Atomics:   append(slices.Clip(a.Atomics), b.Atomics...),
		Relations: append(slices.Clip(a.Relations), b.Relations...),
		Decisions: append(slices.Clip(a.Decisions), b.Decisions...),
	}
}

// Branch is one complete choice of options: the flattened atomics and
// relations along the chosen path.
type Branch struct {
	Index     int
	Atomics   []Atomic
	Relations []Relation
}

// Branches enumerates every choice of options, depth first with the first
// option of each decision first. Enumeration is lazy.
func (t *DecisionTree) Branches() iter.Seq[Branch] {
	return func(yield func(Branch) bool) {
		if t.Root == nil {
			return
		}
		index := 0
		expand(t.Root, &ConstraintNode{}, nil, func(n *ConstraintNode) bool {
			b := Branch{Index: index, Atomics: n.Atomics, Relations: n.Relations}
			index++
			return yield(b)
		})
	}
}

// expand chooses an option for every pending decision. acc holds the atomics
// and relations collected so far; pending holds decisions still to resolve.
func expand(n, acc *ConstraintNode, pending []*DecisionNode, yield func(*ConstraintNode) bool) bool {
	acc = &ConstraintNode{
		Atomics:   append(slices.Clip(acc.Atomics), n.Atomics...),
		Relations: append(slices.Clip(acc.Relations), n.Relations...),
	}
	pending = append(slices.Clip(n.Decisions), pending...)
	if len(pending) == 0 {
		return yield(acc)
	}
	next, rest := pending[0], pending[1:]
	for _, option := range next.Options {
		if !expand(option, acc, rest, yield) {
			return false
		}
	}
	return true
}

// Specs intersects the tree's base specs with the branch's atomics. A false
// result means some field has no value on this branch.
func (t *DecisionTree) Specs(b Branch) (map[ir.Field]restrictions.FieldSpec, bool, error) {
	specs := make(map[ir.Field]restrictions.FieldSpec, len(t.Fields))
	for _, f := range t.Fields {
		specs[f] = t.Base(f)
	}
	for _, a := range b.Atomics {
		current, ok := specs[a.Field]
		if !ok {
			current = restrictions.Unconstrained()
		}
		res, err := current.IntersectRestriction(a.Restriction)
		if err != nil {
			return nil, false, restrictions.WithField(err, a.Field.Name)
		}
		next, ok := res.Get()
		if !ok {
			return nil, false, nil
		}
		specs[a.Field] = next
	}
	return specs, true, nil
}

// Count returns the number of branches without enumerating them.
func (t *DecisionTree) Count() int {
	if t.Root == nil {
		return 0
	}
	return countNode(t.Root)
}

func countNode(n *ConstraintNode) int {
	total := 1
	for _, d := range n.Decisions {
		options := 0
		for _, o := range d.Options {
			options += countNode(o)
		}
		total *= options
	}
	return total
}
