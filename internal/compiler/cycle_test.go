package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datagen/internal/profile"
)

func ints(names ...string) []profile.FieldDecl {
	out := make([]profile.FieldDecl, len(names))
	for i, n := range names {
		out[i] = profile.FieldDecl{Name: n, Type: profile.TypeInteger}
	}
	return out
}

func rel(field string, op profile.RelOp, other string) profile.Relation {
	return profile.Relation{Field: field, Op: op, Other: other}
}

func TestAnalyzeCycles_NoRelations(t *testing.T) {
	warnings := AnalyzeCycles(&profile.Profile{Fields: ints("a", "b")})
	assert.Empty(t, warnings)
}

func TestAnalyzeCycles_Chain(t *testing.T) {
	p := &profile.Profile{
		Fields: ints("a", "b", "c"),
		Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
			rel("a", profile.RelGreaterThan, "b"),
			rel("c", profile.RelLessThan, "b"),
		}}},
	}
	assert.Empty(t, AnalyzeCycles(p), "a > b > c is acyclic")
}

func TestAnalyzeCycles_TwoFieldCycle(t *testing.T) {
	p := &profile.Profile{
		Fields: ints("start", "end"),
		Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
			rel("end", profile.RelGreaterThan, "start"),
			rel("end", profile.RelLessThanOrEqualTo, "start"),
		}}},
	}
	warnings := AnalyzeCycles(p)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"start", "end", "start"}, warnings[0].Path)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "start > end > start")
}

func TestAnalyzeCycles_NegationFlipsDirection(t *testing.T) {
	// not (a > b) is a <= b, so together with a > b this is a cycle.
	p := &profile.Profile{
		Fields: ints("a", "b"),
		Rules: []profile.Rule{
			{Name: "r1", Constraints: []profile.Constraint{rel("a", profile.RelGreaterThan, "b")}},
			{Name: "r2", Constraints: []profile.Constraint{profile.Not{Inner: rel("a", profile.RelGreaterThan, "b")}}},
		},
	}
	assert.Len(t, AnalyzeCycles(p), 1)

	// Without the negation the edges coincide.
	p.Rules[1].Constraints[0] = rel("a", profile.RelGreaterThan, "b")
	assert.Empty(t, AnalyzeCycles(p))
}

func TestAnalyzeCycles_IfConditionCountsBothWays(t *testing.T) {
	p := &profile.Profile{
		Fields: ints("a", "b"),
		Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
			profile.If{Cond: rel("a", profile.RelGreaterThan, "b"), Then: profile.IsNull("a")},
		}}},
	}
	assert.Len(t, AnalyzeCycles(p), 1)
}

func TestAnalyzeCycles_EqualityAddsNoEdge(t *testing.T) {
	p := &profile.Profile{
		Fields: ints("a", "b"),
		Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
			rel("a", profile.RelEqualTo, "b"),
			rel("b", profile.RelNotEqualTo, "a"),
		}}},
	}
	assert.Empty(t, AnalyzeCycles(p))
}

func TestAnalyzeCycles_ThreeFieldCycle(t *testing.T) {
	p := &profile.Profile{
		Fields: ints("x", "y", "z", "free"),
		Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
			profile.AnyOf{
				rel("x", profile.RelGreaterThan, "y"),
				rel("y", profile.RelGreaterThanOrEqualTo, "z"),
			},
			rel("x", profile.RelLessThan, "z"),
		}}},
	}
	warnings := AnalyzeCycles(p)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"x", "y", "z", "x"}, warnings[0].Path)
}
