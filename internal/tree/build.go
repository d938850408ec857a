package tree

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/profile"
	"github.com/roach88/datagen/internal/refdata"
	"github.com/roach88/datagen/internal/restrictions"
	"github.com/roach88/datagen/internal/stringgen"
)

// Build normalises a profile into a decision tree.
//
// NOT is pushed down to atomics (De Morgan, double negation), IF-THEN-ELSE
// becomes OR(AND(if, then), AND(NOT if, else)), AnyOf becomes a decision and
// AllOf is flattened. Options whose atomics leave some field without values
// are pruned; a tree with no satisfiable branch has a nil Root.
func Build(p *profile.Profile, names refdata.Provider) (*DecisionTree, error) {
	if missing := p.Undeclared(); len(missing) > 0 {
		return nil, &BuildError{
			Code:  ErrUndeclaredField,
			Field: missing[0],
			Err:   fmt.Errorf("undeclared fields: %s", strings.Join(missing, ", ")),
		}
	}

	base, err := baseSpecs(p, names)
	if err != nil {
		return nil, err
	}

	root := &ConstraintNode{}
	for _, rule := range p.Rules {
		for _, c := range rule.Constraints {
			n, err := normalise(c, false)
			if err != nil {
				return nil, err
			}
			root = merge(root, n)
		}
	}

	t := &DecisionTree{Fields: p.FieldOrder(), base: base}
	pruned, ok, err := t.prune(root, maps.Clone(base))
	if err != nil {
		return nil, err
	}
	if ok {
		t.Root = pruned
	} else {
		slog.Debug("profile has no satisfiable branch", "profile", p.Name)
	}
	return t, nil
}

// baseSpecs derives each field's spec from its declaration: the type, the
// reference vocabulary for names, non-null unless nullable, and uniqueness.
func baseSpecs(p *profile.Profile, names refdata.Provider) (map[ir.Field]restrictions.FieldSpec, error) {
	out := make(map[ir.Field]restrictions.FieldSpec, len(p.Fields))
	for _, decl := range p.Fields {
		typ, err := typeRestriction(decl, names)
		if err != nil {
			return nil, &BuildError{Code: ErrInvalidField, Field: decl.Name, Err: err}
		}
		rs := []restrictions.Restriction{typ}
		if !decl.Nullable {
			rs = append(rs, restrictions.MustNotBeNull)
		}
		if decl.Unique {
			rs = append(rs, restrictions.UniqueRestriction{})
		}
		res, err := restrictions.NewFieldSpec(rs...)
		if err != nil {
			return nil, &BuildError{Code: ErrInvalidField, Field: decl.Name, Err: err}
		}
		spec, ok := res.Get()
		if !ok {
			return nil, &BuildError{Code: ErrInvalidField, Field: decl.Name, Err: fmt.Errorf("type %s has no values", decl.Type)}
		}
		out[decl.Field()] = spec
	}
	return out, nil
}

func typeRestriction(decl profile.FieldDecl, names refdata.Provider) (*restrictions.TypeRestriction, error) {
	switch {
	case decl.Type == profile.TypeInteger:
		return &restrictions.TypeRestriction{Type: restrictions.TypeNumeric, Integral: true}, nil
	case decl.Type == profile.TypeDecimal:
		return restrictions.OfType(restrictions.TypeNumeric), nil
	case decl.Type == profile.TypeString:
		return restrictions.OfType(restrictions.TypeString), nil
	case decl.Type.Temporal():
		r := restrictions.OfType(restrictions.TypeDateTime)
		if decl.Type == profile.TypeDate {
			r.Granularity = ir.UnitDays
		}
		return r, nil
	case decl.Type.IsName():
		if names == nil {
			return nil, fmt.Errorf("no reference data for %s", decl.Type)
		}
		list, err := names.Names(decl.Type)
		if err != nil {
			return nil, err
		}
		return &restrictions.TypeRestriction{Type: restrictions.TypeString, Names: list}, nil
	}
	if name, ok := decl.Type.Standard(); ok {
		family, ok := stringgen.LookupStandard(name)
		if !ok {
			return nil, fmt.Errorf("unknown standard %q", name)
		}
		return &restrictions.TypeRestriction{Type: restrictions.TypeString, Standard: family}, nil
	}
	return nil, fmt.Errorf("unknown field type %q", decl.Type)
}

// normalise converts c, negated when neg is set, into a node in which only
// atomics, relations and decisions remain.
func normalise(c profile.Constraint, neg bool) (*ConstraintNode, error) {
	switch v := c.(type) {
	case profile.Atomic:
		return atomicNode(v, neg)

	case profile.Relation:
		if v.Field == v.Other {
			return nil, &BuildError{Code: ErrInvalidConstraint, Field: v.Field, Constraint: v.String(),
				Err: fmt.Errorf("a field cannot be related to itself")}
		}
		op := v.Op
		source := v.String()
		if neg {
			op = op.Negate()
			source = profile.Not{Inner: v}.String()
		}
		return &ConstraintNode{Relations: []Relation{{
			Field:      ir.NewField(v.Field),
			Op:         op,
			Other:      ir.NewField(v.Other),
			Offset:     v.Offset,
			OffsetUnit: v.OffsetUnit,
			Source:     source,
		}}}, nil

	case profile.AllOf:
		if neg {
			return decision(v, true)
		}
		return conjunction(v, false)

	case profile.AnyOf:
		if neg {
			return conjunction(v, true)
		}
		return decision(v, false)

	case profile.Not:
		return normalise(v.Inner, !neg)

	case profile.If:
		return conditional(v, neg)

	default:
		return nil, &BuildError{Code: ErrInvalidConstraint, Constraint: fmt.Sprintf("%T", c),
			Err: fmt.Errorf("unknown constraint form")}
	}
}

func conjunction(cs []profile.Constraint, neg bool) (*ConstraintNode, error) {
	out := &ConstraintNode{}
	for _, c := range cs {
		n, err := normalise(c, neg)
		if err != nil {
			return nil, err
		}
		out = merge(out, n)
	}
	return out, nil
}

func decision(cs []profile.Constraint, neg bool) (*ConstraintNode, error) {
	d := &DecisionNode{}
	for _, c := range cs {
		n, err := normalise(c, neg)
		if err != nil {
			return nil, err
		}
		d.Options = append(d.Options, n)
	}
	return &ConstraintNode{Decisions: []*DecisionNode{d}}, nil
}

// conditional expands IF. Negated, it is (cond AND NOT then) OR
// (NOT cond AND NOT else); without an else the second option is dropped,
// since a false condition satisfies the IF.
func conditional(c profile.If, neg bool) (*ConstraintNode, error) {
	cond, err := normalise(c.Cond, false)
	if err != nil {
		return nil, err
	}
	notCond, err := normalise(c.Cond, true)
	if err != nil {
		return nil, err
	}
	then, err := normalise(c.Then, neg)
	if err != nil {
		return nil, err
	}

	d := &DecisionNode{Options: []*ConstraintNode{merge(cond, then)}}
	switch {
	case c.Else != nil:
		otherwise, err := normalise(c.Else, neg)
		if err != nil {
			return nil, err
		}
		d.Options = append(d.Options, merge(notCond, otherwise))
	case !neg:
		d.Options = append(d.Options, notCond)
	}
	return &ConstraintNode{Decisions: []*DecisionNode{d}}, nil
}

// prune drops options whose atomics are unsatisfiable given the atomics
// inherited from their ancestors, and lifts decisions left with a single
// option into their parent. A false result means n itself is unsatisfiable.
func (t *DecisionTree) prune(n *ConstraintNode, inherited map[ir.Field]restrictions.FieldSpec) (*ConstraintNode, bool, error) {
	specs := inherited
	if ok, err := applyAtomics(specs, n.Atomics); err != nil || !ok {
		return nil, false, err
	}

	out := &ConstraintNode{
		Atomics:   n.Atomics,
		Relations: n.Relations,
	}
	for _, d := range n.Decisions {
		var kept []*ConstraintNode
		for i, option := range d.Options {
			pruned, ok, err := t.prune(option, maps.Clone(specs))
			if err != nil {
				return nil, false, err
			}
			if !ok {
				slog.Debug("pruned unsatisfiable option", "option", i, "of", len(d.Options))
				continue
			}
			kept = append(kept, pruned)
		}
		switch len(kept) {
		case 0:
			return nil, false, nil
		case 1:
			only := kept[0]
			if ok, err := applyAtomics(specs, only.Atomics); err != nil || !ok {
				return nil, false, err
			}
			out = merge(out, only)
		default:
			out.Decisions = append(out.Decisions, &DecisionNode{Options: kept})
		}
	}
	return out, true, nil
}

// applyAtomics narrows specs in place.
func applyAtomics(specs map[ir.Field]restrictions.FieldSpec, atomics []Atomic) (bool, error) {
	for _, a := range atomics {
		current, ok := specs[a.Field]
		if !ok {
			current = restrictions.Unconstrained()
		}
		res, err := current.IntersectRestriction(a.Restriction)
		if err != nil {
			return false, restrictions.WithField(err, a.Field.Name)
		}
		next, ok := res.Get()
		if !ok {
			return false, nil
		}
		specs[a.Field] = next
	}
	return true, nil
}
