package restrictions

import (
	"fmt"
	"iter"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/datagen/internal/ir"
)

// decimalContext is shared by all numeric arithmetic. Precision is far above
// anything a profile can express, so Add and Quantize are exact in practice.
var decimalContext = apd.BaseContext.WithPrecision(64)

// maxRefinement bounds how many extra decimal places are tried when an
// ungranular open interval has no value on its natural step.
const maxRefinement = 32

// Bound is one end of a numeric range.
type Bound struct {
	Value     *apd.Decimal
	Inclusive bool
}

// NewBound creates a bound holding a copy of v.
func NewBound(v *apd.Decimal, inclusive bool) *Bound {
	return &Bound{Value: new(apd.Decimal).Set(v), Inclusive: inclusive}
}

// NumericRestriction is a numeric range with an optional granularity.
// Granularity is a number of decimal places: 0 means whole numbers and 2
// means multiples of 0.01.
type NumericRestriction struct {
	Min *Bound
	Max *Bound

	// Scale is the granularity in decimal places; nil means unrestricted.
	Scale *int32
}

func (*NumericRestriction) restriction() {}

func (*NumericRestriction) Kind() Kind { return KindNumeric }

// AtLeast restricts to values >= v (or > v when exclusive).
func AtLeast(v *apd.Decimal, inclusive bool) *NumericRestriction {
	return &NumericRestriction{Min: NewBound(v, inclusive)}
}

// AtMost restricts to values <= v (or < v when exclusive).
func AtMost(v *apd.Decimal, inclusive bool) *NumericRestriction {
	return &NumericRestriction{Max: NewBound(v, inclusive)}
}

// Between restricts to the closed range [lo, hi].
func Between(lo, hi *apd.Decimal) *NumericRestriction {
	return &NumericRestriction{Min: NewBound(lo, true), Max: NewBound(hi, true)}
}

// GranularTo restricts to multiples of 10^-scale.
func GranularTo(scale int32) *NumericRestriction {
	return &NumericRestriction{Scale: &scale}
}

// Intersect narrows both bounds and keeps the coarser granularity.
func (r *NumericRestriction) Intersect(other *NumericRestriction) MergeResult[*NumericRestriction] {
	out := &NumericRestriction{
		Min:   tighterMin(r.Min, other.Min),
		Max:   tighterMax(r.Max, other.Max),
		Scale: coarserScale(r.Scale, other.Scale),
	}
	if _, ok := out.firstValue(); !ok {
		return Unsatisfiable[*NumericRestriction]()
	}
	return Success(out)
}

func tighterMin(a, b *Bound) *Bound {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	switch c := a.Value.Cmp(b.Value); {
	case c > 0:
		return a
	case c < 0:
		return b
	case !a.Inclusive:
		return a
	default:
		return b
	}
}

func tighterMax(a, b *Bound) *Bound {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	switch c := a.Value.Cmp(b.Value); {
	case c < 0:
		return a
	case c > 0:
		return b
	case !a.Inclusive:
		return a
	default:
		return b
	}
}

func coarserScale(a, b *int32) *int32 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a <= *b:
		return a
	default:
		return b
	}
}

// Contains reports whether v lies in range and on the granularity grid.
func (r *NumericRestriction) Contains(v *apd.Decimal) bool {
	if r.Min != nil {
		c := v.Cmp(r.Min.Value)
		if c < 0 || (c == 0 && !r.Min.Inclusive) {
			return false
		}
	}
	if r.Max != nil {
		c := v.Cmp(r.Max.Value)
		if c > 0 || (c == 0 && !r.Max.Inclusive) {
			return false
		}
	}
	if r.Scale != nil {
		return decimalPlaces(v) <= *r.Scale
	}
	return true
}

// decimalPlaces returns the number of significant fractional digits of v.
func decimalPlaces(v *apd.Decimal) int32 {
	reduced, _ := new(apd.Decimal).Reduce(v)
	if reduced.IsZero() || reduced.Exponent >= 0 {
		return 0
	}
	return -reduced.Exponent
}

// Values steps through the range from the lower bound. Without a lower
// bound the sequence ascends from zero when zero is in range, and
// otherwise descends from the upper bound. The step is the granularity, or
// the finest decimal place written in either bound.
func (r *NumericRestriction) Values() iter.Seq[*apd.Decimal] {
	return func(yield func(*apd.Decimal) bool) {
		p, ok := r.plan()
		if !ok {
			return
		}
		cur := p.start
		for r.inRange(cur) {
			if !yield(new(apd.Decimal).Set(cur)) {
				return
			}
			next := new(apd.Decimal)
			if p.descending {
				_, _ = decimalContext.Sub(next, cur, p.step)
			} else {
				_, _ = decimalContext.Add(next, cur, p.step)
			}
			cur = next
		}
	}
}

type stepPlan struct {
	start      *apd.Decimal
	step       *apd.Decimal
	descending bool
}

func (r *NumericRestriction) firstValue() (*apd.Decimal, bool) {
	p, ok := r.plan()
	if !ok {
		return nil, false
	}
	return p.start, true
}

func (r *NumericRestriction) inRange(v *apd.Decimal) bool {
	if r.Min != nil {
		c := v.Cmp(r.Min.Value)
		if c < 0 || (c == 0 && !r.Min.Inclusive) {
			return false
		}
	}
	if r.Max != nil {
		c := v.Cmp(r.Max.Value)
		if c > 0 || (c == 0 && !r.Max.Inclusive) {
			return false
		}
	}
	return true
}

// plan picks the first value and step. An ungranular range whose natural
// step skips over it is retried with finer steps.
func (r *NumericRestriction) plan() (stepPlan, bool) {
	scale := int32(0)
	if r.Scale != nil {
		scale = *r.Scale
	} else {
		if r.Min != nil {
			scale = max(scale, decimalPlaces(r.Min.Value))
		}
		if r.Max != nil {
			scale = max(scale, decimalPlaces(r.Max.Value))
		}
	}

	attempts := 1
	if r.Scale == nil {
		attempts += maxRefinement
	}
	for i := 0; i < attempts; i++ {
		p := r.planAt(scale + int32(i))
		if r.inRange(p.start) {
			return p, true
		}
	}
	return stepPlan{}, false
}

func (r *NumericRestriction) planAt(scale int32) stepPlan {
	step := apd.New(1, -scale)
	zero := apd.New(0, 0)

	switch {
	case r.Min != nil:
		start := snap(r.Min.Value, scale, true)
		if !r.Min.Inclusive && start.Cmp(r.Min.Value) == 0 {
			_, _ = decimalContext.Add(start, start, step)
		}
		return stepPlan{start: start, step: step}
	case r.inRange(zero):
		return stepPlan{start: zero, step: step}
	default:
		start := snap(r.Max.Value, scale, false)
		if !r.Max.Inclusive && start.Cmp(r.Max.Value) == 0 {
			_, _ = decimalContext.Sub(start, start, step)
		}
		return stepPlan{start: start, step: step, descending: true}
	}
}

// snap moves v onto the 10^-scale grid, upward or downward.
func snap(v *apd.Decimal, scale int32, up bool) *apd.Decimal {
	ctx := *decimalContext
	ctx.Rounding = apd.RoundDown
	out := new(apd.Decimal)
	_, _ = ctx.Quantize(out, v, -scale)

	step := apd.New(1, -scale)
	c := out.Cmp(v)
	switch {
	case up && c < 0:
		_, _ = decimalContext.Add(out, out, step)
	case !up && c > 0:
		_, _ = decimalContext.Sub(out, out, step)
	}
	if out.IsZero() {
		out.Negative = false
	}
	return out
}

// Equal reports structural equality, comparing bounds numerically.
func (r *NumericRestriction) Equal(other *NumericRestriction) bool {
	return boundEqual(r.Min, other.Min) && boundEqual(r.Max, other.Max) &&
		((r.Scale == nil) == (other.Scale == nil)) &&
		(r.Scale == nil || *r.Scale == *other.Scale)
}

func boundEqual(a, b *Bound) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Inclusive == b.Inclusive && a.Value.Cmp(b.Value) == 0
}

func (r *NumericRestriction) String() string {
	var b strings.Builder
	switch {
	case r.Min == nil:
		b.WriteString("(-inf")
	case r.Min.Inclusive:
		fmt.Fprintf(&b, "[%s", r.Min.Value.Text('f'))
	default:
		fmt.Fprintf(&b, "(%s", r.Min.Value.Text('f'))
	}
	b.WriteString(", ")
	switch {
	case r.Max == nil:
		b.WriteString("+inf)")
	case r.Max.Inclusive:
		fmt.Fprintf(&b, "%s]", r.Max.Value.Text('f'))
	default:
		fmt.Fprintf(&b, "%s)", r.Max.Value.Text('f'))
	}
	if r.Scale != nil {
		fmt.Fprintf(&b, " granular to %s", apd.New(1, -*r.Scale).Text('f'))
	}
	return b.String()
}

// containsValue is Contains lifted to IR values.
func (r *NumericRestriction) containsValue(v ir.IRValue) bool {
	n, ok := v.(ir.IRNumber)
	return ok && r.Contains(n.Decimal())
}
