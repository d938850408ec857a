package restrictions

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/roach88/datagen/internal/ir"
)

// epoch is where an unbounded datetime range starts counting.
var epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Datetimes are rendered with a four digit year.
var (
	earliest = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	latest   = time.Date(9999, time.December, 31, 23, 59, 59, 999_000_000, time.UTC)
)

// TimeBound is one end of a datetime range.
type TimeBound struct {
	Value     time.Time
	Inclusive bool
}

// DateTimeRestriction is a datetime range on a grid of whole units.
type DateTimeRestriction struct {
	Min *TimeBound
	Max *TimeBound

	// Unit is the granularity; empty means milliseconds.
	Unit ir.TimeUnit
}

func (*DateTimeRestriction) restriction() {}

func (*DateTimeRestriction) Kind() Kind { return KindDateTime }

// After restricts to instants later than t (or equal when inclusive).
func After(t ir.IRDateTime, inclusive bool) *DateTimeRestriction {
	return &DateTimeRestriction{Min: &TimeBound{Value: t.Time(), Inclusive: inclusive}}
}

// Before restricts to instants earlier than t (or equal when inclusive).
func Before(t ir.IRDateTime, inclusive bool) *DateTimeRestriction {
	return &DateTimeRestriction{Max: &TimeBound{Value: t.Time(), Inclusive: inclusive}}
}

// GranularToUnit restricts to whole multiples of u.
func GranularToUnit(u ir.TimeUnit) *DateTimeRestriction {
	return &DateTimeRestriction{Unit: u}
}

func (r *DateTimeRestriction) unit() ir.TimeUnit {
	if r.Unit == "" {
		return ir.UnitMillis
	}
	return r.Unit
}

// Intersect narrows both bounds and keeps the coarser unit.
func (r *DateTimeRestriction) Intersect(other *DateTimeRestriction) MergeResult[*DateTimeRestriction] {
	out := &DateTimeRestriction{
		Min:  laterMin(r.Min, other.Min),
		Max:  earlierMax(r.Max, other.Max),
		Unit: r.Unit,
	}
	if other.Unit != "" && (r.Unit == "" || other.Unit.Coarser(r.Unit)) {
		out.Unit = other.Unit
	}
	if _, ok := out.firstValue(); !ok {
		return Unsatisfiable[*DateTimeRestriction]()
	}
	return Success(out)
}

func laterMin(a, b *TimeBound) *TimeBound {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	switch c := a.Value.Compare(b.Value); {
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

func earlierMax(a, b *TimeBound) *TimeBound {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	switch c := a.Value.Compare(b.Value); {
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

func (r *DateTimeRestriction) inRange(t time.Time) bool {
	if t.Before(earliest) || t.After(latest) {
		return false
	}
	if r.Min != nil {
		c := t.Compare(r.Min.Value)
		if c < 0 || (c == 0 && !r.Min.Inclusive) {
			return false
		}
	}
	if r.Max != nil {
		c := t.Compare(r.Max.Value)
		if c > 0 || (c == 0 && !r.Max.Inclusive) {
			return false
		}
	}
	return true
}

// Contains reports whether t lies in range and on the unit grid.
func (r *DateTimeRestriction) Contains(t time.Time) bool {
	return r.inRange(t) && r.unit().Truncate(t).Equal(t)
}

// first picks the starting instant and direction: up from the lower
// bound, else up from the epoch when it is in range, else down from the
// upper bound.
func (r *DateTimeRestriction) first() (start time.Time, step int64) {
	u := r.unit()
	switch {
	case r.Min != nil:
		start = u.Truncate(r.Min.Value)
		if start.Before(r.Min.Value) || (!r.Min.Inclusive && start.Equal(r.Min.Value)) {
			start = u.Add(start, 1)
		}
		step = 1
	case r.inRange(epoch):
		start, step = epoch, 1
	case r.Max != nil:
		start = u.Truncate(r.Max.Value)
		if !r.Max.Inclusive && start.Equal(r.Max.Value) {
			start = u.Add(start, -1)
		}
		step = -1
	}
	return start, step
}

// Values steps through the range one unit at a time.
func (r *DateTimeRestriction) Values() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		cur, step := r.first()
		if step == 0 {
			return
		}
		u := r.unit()
		for i := int64(0); ; i++ {
			// Stepping from the start keeps month ends from drifting.
			t := u.Add(cur, i*step)
			if !r.inRange(t) || !yield(t) {
				return
			}
		}
	}
}

func (r *DateTimeRestriction) firstValue() (time.Time, bool) {
	for t := range r.Values() {
		return t, true
	}
	return time.Time{}, false
}

// Equal reports structural equality, comparing bounds as instants.
func (r *DateTimeRestriction) Equal(other *DateTimeRestriction) bool {
	return timeBoundEqual(r.Min, other.Min) && timeBoundEqual(r.Max, other.Max) &&
		r.unit() == other.unit()
}

func timeBoundEqual(a, b *TimeBound) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Inclusive == b.Inclusive && a.Value.Equal(b.Value)
}

func (r *DateTimeRestriction) String() string {
	var b strings.Builder
	switch {
	case r.Min == nil:
		b.WriteString("(-inf")
	case r.Min.Inclusive:
		fmt.Fprintf(&b, "[%s", r.Min.Value.Format(ir.DateTimeLayout))
	default:
		fmt.Fprintf(&b, "(%s", r.Min.Value.Format(ir.DateTimeLayout))
	}
	b.WriteString(", ")
	switch {
	case r.Max == nil:
		b.WriteString("+inf)")
	case r.Max.Inclusive:
		fmt.Fprintf(&b, "%s]", r.Max.Value.Format(ir.DateTimeLayout))
	default:
		fmt.Fprintf(&b, "%s)", r.Max.Value.Format(ir.DateTimeLayout))
	}
	if r.Unit != "" {
		fmt.Fprintf(&b, " granular to %s", r.Unit)
	}
	return b.String()
}

// containsValue is Contains lifted to IR values.
func (r *DateTimeRestriction) containsValue(v ir.IRValue) bool {
	d, ok := v.(ir.IRDateTime)
	return ok && r.Contains(d.Time())
}
