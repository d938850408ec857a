package restrictions

import (
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datagen/internal/ir"
)

func day(s string) ir.IRDateTime { return ir.MustParseIRDateTime(s) }

func instants(seq iter.Seq[time.Time], n int) []string {
	var out []string
	for t := range seq {
		if len(out) == n {
			break
		}
		out = append(out, t.Format(ir.DateTimeLayout))
	}
	return out
}

func between(lo, hi string) *DateTimeRestriction {
	return After(day(lo), true).Intersect(Before(day(hi), true)).Value()
}

func TestDateTimeRestriction_Values(t *testing.T) {
	tests := []struct {
		name string
		r    *DateTimeRestriction
		want []string
	}{
		{
			name: "unbounded starts at the epoch in millis",
			r:    &DateTimeRestriction{},
			want: []string{"1970-01-01T00:00:00.000Z", "1970-01-01T00:00:00.001Z"},
		},
		{
			name: "exclusive lower bound on a day grid",
			r:    After(day("2001-01-01"), false).Intersect(GranularToUnit(ir.UnitDays)).Value(),
			want: []string{"2001-01-02T00:00:00.000Z", "2001-01-03T00:00:00.000Z"},
		},
		{
			name: "lower bound off the grid snaps up",
			r:    After(day("2001-01-01T12:00:00"), true).Intersect(GranularToUnit(ir.UnitDays)).Value(),
			want: []string{"2001-01-02T00:00:00.000Z", "2001-01-03T00:00:00.000Z"},
		},
		{
			name: "upper bound before the epoch descends",
			r:    Before(day("1960-03-01"), false).Intersect(GranularToUnit(ir.UnitMonths)).Value(),
			want: []string{"1960-02-01T00:00:00.000Z", "1960-01-01T00:00:00.000Z"},
		},
		{
			name: "closed range ends at the upper bound",
			r:    between("2001-01-01", "2001-01-03").Intersect(GranularToUnit(ir.UnitDays)).Value(),
			want: []string{"2001-01-01T00:00:00.000Z", "2001-01-02T00:00:00.000Z", "2001-01-03T00:00:00.000Z"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, instants(tt.r.Values(), 5)[:len(tt.want)])
		})
	}
}

func TestDateTimeRestriction_IntersectKeepsCoarserUnit(t *testing.T) {
	r := GranularToUnit(ir.UnitHours).Intersect(GranularToUnit(ir.UnitDays)).Value()
	assert.Equal(t, ir.UnitDays, r.Unit)
	r = GranularToUnit(ir.UnitDays).Intersect(GranularToUnit(ir.UnitHours)).Value()
	assert.Equal(t, ir.UnitDays, r.Unit)
}

func TestDateTimeRestriction_Unsatisfiable(t *testing.T) {
	assert.False(t, After(day("2001-01-02"), false).Intersect(Before(day("2001-01-02"), true)).Successful())

	// Both bounds fall inside one day, so no midnight is in range.
	noon := between("2001-01-01T06:00:00", "2001-01-01T18:00:00")
	assert.False(t, noon.Intersect(GranularToUnit(ir.UnitDays)).Successful())
}

func TestDateTimeRestriction_Contains(t *testing.T) {
	r := between("2001-01-01", "2001-12-31").Intersect(GranularToUnit(ir.UnitDays)).Value()
	assert.True(t, r.Contains(day("2001-06-01").Time()))
	assert.False(t, r.Contains(day("2001-06-01T00:00:00.001").Time()))
	assert.False(t, r.Contains(day("2002-01-01").Time()))
}

func TestDateTimeRestriction_String(t *testing.T) {
	r := After(day("2001-01-01"), false).Intersect(GranularToUnit(ir.UnitDays)).Value()
	assert.Equal(t, "(2001-01-01T00:00:00.000Z, +inf) granular to days", r.String())
}

func TestFieldSpec_DateType(t *testing.T) {
	spec := MustFieldSpec(
		&TypeRestriction{Type: TypeDateTime, Granularity: ir.UnitDays},
		After(day("2001-02-27"), true),
		NotInSet(day("2001-02-28")),
	)
	assert.Equal(t, []string{"2001-02-27T00:00:00.000Z", "2001-03-01T00:00:00.000Z"}, values(spec.Values(), 2))
	assert.True(t, spec.Permits(day("2001-03-05")))
	assert.False(t, spec.Permits(day("2001-03-05T10:00:00")))
	assert.False(t, spec.Permits(str("2001-03-05T00:00:00.000Z")))
}

func TestFieldSpec_DateTimeWhitelist(t *testing.T) {
	spec := MustFieldSpec(
		OfType(TypeDateTime),
		InSet(day("2001-01-01"), str("2001-01-02"), day("1999-01-01")),
		After(day("2000-01-01"), true),
	)
	assert.Equal(t, []string{"2001-01-01T00:00:00.000Z"}, values(spec.Values(), 10))
}

func TestFieldSpec_DateTimeConflicts(t *testing.T) {
	res, err := NewFieldSpec(OfType(TypeNumeric), After(day("2001-01-01"), true))
	require.NoError(t, err)
	assert.False(t, res.Successful())

	res, err = NewFieldSpec(OfType(TypeDateTime), mustMatching(t, "a+"))
	require.NoError(t, err)
	assert.False(t, res.Successful())

	res, err = NewFieldSpec(OfType(TypeDateTime), OfType(TypeString))
	require.NoError(t, err)
	assert.False(t, res.Successful())
}

func TestFieldSpec_DateTimeRangeExcludesNull(t *testing.T) {
	spec := MustFieldSpec(OfType(TypeDateTime), Before(day("2001-01-01"), true))
	assert.False(t, spec.Permits(ir.IRNull{}))

	typed := MustFieldSpec(OfType(TypeDateTime))
	assert.True(t, typed.Permits(ir.IRNull{}))
}
