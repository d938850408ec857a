package tree

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/profile"
	"github.com/roach88/datagen/internal/restrictions"
)

var offsetContext = apd.BaseContext.WithPrecision(64)

// Relation requires Field <Op> Other + Offset. On datetimes the offset
// counts OffsetUnit, days when unset.
type Relation struct {
	Field      ir.Field
	Op         profile.RelOp
	Other      ir.Field
	Offset     *apd.Decimal
	OffsetUnit ir.TimeUnit
	Source     string
}

// Converse expresses the same relation with Other on the left:
// a > b + k holds exactly when b < a - k.
func (r Relation) Converse() Relation {
	out := Relation{Field: r.Other, Other: r.Field, OffsetUnit: r.OffsetUnit, Source: r.Source}
	switch r.Op {
	case profile.RelGreaterThan:
		out.Op = profile.RelLessThan
	case profile.RelGreaterThanOrEqualTo:
		out.Op = profile.RelLessThanOrEqualTo
	case profile.RelLessThan:
		out.Op = profile.RelGreaterThan
	case profile.RelLessThanOrEqualTo:
		out.Op = profile.RelGreaterThanOrEqualTo
	default:
		out.Op = r.Op
	}
	if r.Offset != nil {
		out.Offset = new(apd.Decimal).Neg(r.Offset)
	}
	return out
}

// Involves reports whether f is either side of the relation.
func (r Relation) Involves(f ir.Field) bool {
	return r.Field == f || r.Other == f
}

// Reduce turns the relation into a spec for Field once Other is fixed to
// other. Null satisfies only equality, which then forces null. Ordering
// relations need a number or a datetime on the fixed side.
func (r Relation) Reduce(other ir.IRValue) (restrictions.MergeResult[restrictions.FieldSpec], error) {
	if ir.IsNull(other) {
		if r.Op == profile.RelEqualTo {
			return restrictions.NewFieldSpec(restrictions.MustBeNull)
		}
		return restrictions.Unsatisfiable[restrictions.FieldSpec](), nil
	}

	target, err := r.shift(other)
	if err != nil {
		return restrictions.Unsatisfiable[restrictions.FieldSpec](), err
	}

	switch r.Op {
	case profile.RelEqualTo:
		return restrictions.NewFieldSpec(restrictions.InSet(target))
	case profile.RelNotEqualTo:
		return restrictions.NewFieldSpec(restrictions.NotInSet(target))
	}

	if t, ok := target.(ir.IRDateTime); ok {
		return r.reduceTemporal(t)
	}
	n, ok := target.(ir.IRNumber)
	if !ok {
		return restrictions.Unsatisfiable[restrictions.FieldSpec](), &restrictions.UnsupportedCombinationError{
			Field: r.Field.Name,
			Left:  "relation " + r.Op.String(),
			Right: fmt.Sprintf("non-numeric value %q of %s", target.String(), r.Other.Name),
		}
	}
	d := n.Decimal()
	switch r.Op {
	case profile.RelGreaterThan:
		return restrictions.NewFieldSpec(restrictions.AtLeast(d, false))
	case profile.RelGreaterThanOrEqualTo:
		return restrictions.NewFieldSpec(restrictions.AtLeast(d, true))
	case profile.RelLessThan:
		return restrictions.NewFieldSpec(restrictions.AtMost(d, false))
	case profile.RelLessThanOrEqualTo:
		return restrictions.NewFieldSpec(restrictions.AtMost(d, true))
	default:
		return restrictions.Unsatisfiable[restrictions.FieldSpec](), &restrictions.UnsupportedCombinationError{
			Field: r.Field.Name,
			Left:  "relation",
			Right: r.Op.String(),
		}
	}
}

func (r Relation) reduceTemporal(t ir.IRDateTime) (restrictions.MergeResult[restrictions.FieldSpec], error) {
	switch r.Op {
	case profile.RelGreaterThan:
		return restrictions.NewFieldSpec(restrictions.After(t, false))
	case profile.RelGreaterThanOrEqualTo:
		return restrictions.NewFieldSpec(restrictions.After(t, true))
	case profile.RelLessThan:
		return restrictions.NewFieldSpec(restrictions.Before(t, false))
	default:
		return restrictions.NewFieldSpec(restrictions.Before(t, true))
	}
}

// shift adds the offset to a numeric value, or moves a datetime by that
// many units. A non-zero offset on a string has no meaning.
func (r Relation) shift(v ir.IRValue) (ir.IRValue, error) {
	if r.Offset == nil || r.Offset.IsZero() {
		return v, nil
	}
	if t, ok := v.(ir.IRDateTime); ok {
		return r.shiftTemporal(t)
	}
	if r.OffsetUnit != "" {
		return nil, &restrictions.UnsupportedCombinationError{
			Field: r.Field.Name,
			Left:  "offset unit " + string(r.OffsetUnit),
			Right: fmt.Sprintf("non-datetime value %q of %s", v.String(), r.Other.Name),
		}
	}
	n, ok := v.(ir.IRNumber)
	if !ok {
		return nil, &restrictions.UnsupportedCombinationError{
			Field: r.Field.Name,
			Left:  "offset " + r.Offset.Text('f'),
			Right: fmt.Sprintf("non-numeric value %q of %s", v.String(), r.Other.Name),
		}
	}
	sum := new(apd.Decimal)
	if _, err := offsetContext.Add(sum, n.Decimal(), r.Offset); err != nil {
		return nil, fmt.Errorf("relation offset: %w", err)
	}
	return ir.NewIRNumber(sum), nil
}

func (r Relation) shiftTemporal(t ir.IRDateTime) (ir.IRValue, error) {
	unit := r.OffsetUnit
	if unit == "" {
		unit = ir.UnitDays
	}
	if !unit.Valid() {
		return nil, fmt.Errorf("relation offset: unknown time unit %q", unit)
	}
	n, err := r.Offset.Int64()
	if err != nil {
		return nil, &restrictions.UnsupportedCombinationError{
			Field: r.Field.Name,
			Left:  "offset " + r.Offset.Text('f'),
			Right: fmt.Sprintf("datetime %s of %s, which needs a whole number of %s", t, r.Other.Name, unit),
		}
	}
	return ir.NewIRDateTime(unit.Add(t.Time(), n)), nil
}

func (r Relation) String() string {
	if r.Source != "" {
		return r.Source
	}
	return profile.Relation{Field: r.Field.Name, Op: r.Op, Other: r.Other.Name, Offset: r.Offset, OffsetUnit: r.OffsetUnit}.String()
}
