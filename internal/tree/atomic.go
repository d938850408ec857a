package tree

import (
	"fmt"

	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/profile"
	"github.com/roach88/datagen/internal/restrictions"
	"github.com/roach88/datagen/internal/stringgen"
)

// atomicNode compiles one profile atomic, negated when neg is set, into a
// node. Most atomics become a single restriction; a negated ofLength becomes
// a decision between shorter and longer.
func atomicNode(a profile.Atomic, neg bool) (*ConstraintNode, error) {
	field := ir.NewField(a.Field)
	source := a.String()
	if neg {
		source = profile.Not{Inner: a}.String()
	}
	leaf := func(r restrictions.Restriction) *ConstraintNode {
		if r == nil {
			return &ConstraintNode{}
		}
		return &ConstraintNode{Atomics: []Atomic{{Field: field, Restriction: r, Source: source}}}
	}

	if neg && a.Op == profile.OpOfLength {
		shorter, err := atomicNode(profile.Length(a.Field, profile.OpShorterThan, a.N), false)
		if err != nil {
			return nil, err
		}
		longer, err := atomicNode(profile.Length(a.Field, profile.OpLongerThan, a.N), false)
		if err != nil {
			return nil, err
		}
		return &ConstraintNode{Decisions: []*DecisionNode{{Options: []*ConstraintNode{shorter, longer}}}}, nil
	}

	r, err := restrictionFor(a, neg)
	if err != nil {
		return nil, &BuildError{Code: ErrInvalidConstraint, Constraint: source, Err: err}
	}
	return leaf(r), nil
}

// restrictionFor maps an atomic to its restriction. A nil restriction means
// the atomic places no constraint on a single row.
func restrictionFor(a profile.Atomic, neg bool) (restrictions.Restriction, error) {
	switch a.Op {
	case profile.OpIsNull:
		if neg {
			return restrictions.MustNotBeNull, nil
		}
		return restrictions.MustBeNull, nil

	case profile.OpInSet:
		if neg {
			return restrictions.NotInSet(a.Values...), nil
		}
		return restrictions.InSet(a.Values...), nil

	case profile.OpEqualTo:
		if a.Value == nil || ir.IsNull(a.Value) {
			return nil, fmt.Errorf("equalTo needs a value; use isNull for null")
		}
		if neg {
			return restrictions.NotInSet(a.Value), nil
		}
		return restrictions.InSet(a.Value), nil

	case profile.OpGreaterThan, profile.OpGreaterThanOrEqualTo, profile.OpLessThan, profile.OpLessThanOrEqualTo:
		n, ok := a.Value.(ir.IRNumber)
		if !ok {
			return nil, fmt.Errorf("%s needs a number", a.Op)
		}
		return comparison(a.Op, n, neg), nil

	case profile.OpAfter, profile.OpAfterOrAt, profile.OpBefore, profile.OpBeforeOrAt:
		t, ok := a.Value.(ir.IRDateTime)
		if !ok {
			return nil, fmt.Errorf("%s needs a datetime", a.Op)
		}
		return temporal(a.Op, t, neg), nil

	case profile.OpGranularTo:
		if neg {
			return nil, fmt.Errorf("granularTo cannot be negated")
		}
		if a.Unit != "" {
			if !a.Unit.Valid() {
				return nil, fmt.Errorf("unknown time unit %q", a.Unit)
			}
			return restrictions.GranularToUnit(a.Unit), nil
		}
		if a.N < 0 {
			return nil, fmt.Errorf("granularTo needs a non-negative number of places")
		}
		return restrictions.GranularTo(int32(a.N)), nil

	case profile.OpMatchingRegex:
		if neg {
			return restrictions.NotMatching(a.Pattern)
		}
		return restrictions.Matching(a.Pattern)

	case profile.OpContainingRegex:
		if neg {
			return restrictions.NotContaining(a.Pattern)
		}
		return restrictions.Containing(a.Pattern)

	case profile.OpOfLength:
		return restrictions.LengthBetween(a.N, a.N), nil

	case profile.OpLongerThan:
		if neg {
			return restrictions.LengthBetween(0, a.N), nil
		}
		return restrictions.LengthBetween(a.N+1, -1), nil

	case profile.OpShorterThan:
		if neg {
			return restrictions.LengthBetween(a.N, -1), nil
		}
		if a.N <= 0 {
			return restrictions.LengthBetween(1, 0), nil
		}
		return restrictions.LengthBetween(0, a.N-1), nil

	case profile.OpMatchesStandard:
		family, ok := stringgen.LookupStandard(a.Standard)
		if !ok {
			return nil, fmt.Errorf("unknown standard %q", a.Standard)
		}
		if neg {
			// Anything without the code's shape; a well formed body with a
			// wrong check digit is not produced.
			return restrictions.NotMatching(family.BodyPattern + `[0-9]`)
		}
		return restrictions.MatchesStandard(family)

	case profile.OpIsUnique:
		// Uniqueness spans rows; a single row cannot violate it.
		if neg {
			return nil, nil
		}
		return restrictions.UniqueRestriction{}, nil

	default:
		return nil, fmt.Errorf("unknown atomic operator %s", a.Op)
	}
}

func comparison(op profile.Op, n ir.IRNumber, neg bool) restrictions.Restriction {
	d := n.Decimal()
	if neg {
		switch op {
		case profile.OpGreaterThan:
			op = profile.OpLessThanOrEqualTo
		case profile.OpGreaterThanOrEqualTo:
			op = profile.OpLessThan
		case profile.OpLessThan:
			op = profile.OpGreaterThanOrEqualTo
		case profile.OpLessThanOrEqualTo:
			op = profile.OpGreaterThan
		}
	}
	switch op {
	case profile.OpGreaterThan:
		return restrictions.AtLeast(d, false)
	case profile.OpGreaterThanOrEqualTo:
		return restrictions.AtLeast(d, true)
	case profile.OpLessThan:
		return restrictions.AtMost(d, false)
	default:
		return restrictions.AtMost(d, true)
	}
}

// temporal is comparison for datetimes: not after t is at or before t.
func temporal(op profile.Op, t ir.IRDateTime, neg bool) restrictions.Restriction {
	if neg {
		switch op {
		case profile.OpAfter:
			op = profile.OpBeforeOrAt
		case profile.OpAfterOrAt:
			op = profile.OpBefore
		case profile.OpBefore:
			op = profile.OpAfterOrAt
		case profile.OpBeforeOrAt:
			op = profile.OpAfter
		}
	}
	switch op {
	case profile.OpAfter:
		return restrictions.After(t, false)
	case profile.OpAfterOrAt:
		return restrictions.After(t, true)
	case profile.OpBefore:
		return restrictions.Before(t, false)
	default:
		return restrictions.Before(t, true)
	}
}
