package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/profile"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_ValidProfile(t *testing.T) {
	p := &profile.Profile{
		Fields: []profile.FieldDecl{
			{Name: "code", Type: profile.TypeString},
			{Name: "qty", Type: profile.TypeInteger},
			{Name: "limit", Type: profile.TypeInteger},
		},
		Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
			profile.MatchingRegex("code", "[A-Z]{3}"),
			profile.MatchesStandard("code", "ISIN"),
			profile.InSet("qty", ir.NewIRInt(1)),
			profile.Relation{Field: "qty", Op: profile.RelLessThan, Other: "limit"},
		}}},
	}
	assert.Empty(t, Validate(p))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		p    *profile.Profile
		want []string
	}{
		{
			name: "undeclared field in nested constraint",
			p: &profile.Profile{
				Fields: []profile.FieldDecl{{Name: "a", Type: profile.TypeString}},
				Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
					profile.If{Cond: profile.IsNull("a"), Then: profile.Not{Inner: profile.IsNull("ghost")}},
				}}},
			},
			want: []string{ErrUndeclaredField},
		},
		{
			name: "duplicate field",
			p: &profile.Profile{Fields: []profile.FieldDecl{
				{Name: "a", Type: profile.TypeString},
				{Name: "a", Type: profile.TypeInteger},
			}},
			want: []string{ErrDuplicateField},
		},
		{
			name: "unknown type",
			p:    &profile.Profile{Fields: []profile.FieldDecl{{Name: "a", Type: "float"}}},
			want: []string{ErrUnknownType},
		},
		{
			name: "bad regex",
			p: &profile.Profile{
				Fields: []profile.FieldDecl{{Name: "a", Type: profile.TypeString}},
				Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
					profile.MatchingRegex("a", "[a-"),
				}}},
			},
			want: []string{ErrBadRegex},
		},
		{
			name: "empty set",
			p: &profile.Profile{
				Fields: []profile.FieldDecl{{Name: "a", Type: profile.TypeString}},
				Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
					profile.InSet("a"),
				}}},
			},
			want: []string{ErrEmptySet},
		},
		{
			name: "unknown standard",
			p: &profile.Profile{
				Fields: []profile.FieldDecl{{Name: "a", Type: profile.TypeString}},
				Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
					profile.AnyOf{profile.MatchesStandard("a", "RIC")},
				}}},
			},
			want: []string{ErrUnknownStandard},
		},
		{
			name: "self relation",
			p: &profile.Profile{
				Fields: []profile.FieldDecl{{Name: "a", Type: profile.TypeInteger}},
				Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
					profile.Relation{Field: "a", Op: profile.RelGreaterThan, Other: "a"},
				}}},
			},
			want: []string{ErrSelfRelation},
		},
		{
			name: "negative length",
			p: &profile.Profile{
				Fields: []profile.FieldDecl{{Name: "a", Type: profile.TypeString}},
				Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
					profile.Length("a", profile.OpLongerThan, -1),
				}}},
			},
			want: []string{ErrInvalidOperand},
		},
		{
			name: "empty rule",
			p: &profile.Profile{
				Fields: []profile.FieldDecl{{Name: "a", Type: profile.TypeString}},
				Rules:  []profile.Rule{{Name: "r"}},
			},
			want: []string{ErrEmptyRule},
		},
		{
			name: "unknown granularity unit",
			p: &profile.Profile{
				Fields: []profile.FieldDecl{{Name: "d", Type: profile.TypeDateTime}},
				Rules:  []profile.Rule{{Name: "r", Constraints: []profile.Constraint{profile.GranularToUnit("d", "fortnights")}}},
			},
			want: []string{ErrUnknownUnit},
		},
		{
			name: "unknown offset unit",
			p: &profile.Profile{
				Fields: []profile.FieldDecl{{Name: "a", Type: profile.TypeDate}, {Name: "b", Type: profile.TypeDate}},
				Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
					profile.Relation{Field: "a", Op: profile.RelGreaterThan, Other: "b", Offset: ir.NewIRInt(1).Decimal(), OffsetUnit: "weeks"},
				}}},
			},
			want: []string{ErrUnknownUnit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Validate(tt.p)))
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	p := &profile.Profile{
		Fields: []profile.FieldDecl{
			{Name: "a", Type: "float"},
			{Name: "a", Type: profile.TypeString},
		},
		Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
			profile.InSet("b"),
		}}},
	}
	errs := Validate(p)
	require.Len(t, errs, 4)
	assert.Equal(t, []string{ErrUnknownType, ErrDuplicateField, ErrUndeclaredField, ErrEmptySet}, codes(errs))
	assert.Equal(t, `[E201] rules[0].constraints[0]: undeclared field "b"`, errs[2].Error())
}

func TestValidationErrorWithLine(t *testing.T) {
	e := ValidationError{Field: "fields[0].type", Message: "bad", Code: ErrUnknownType, Line: 7}
	assert.Equal(t, "[E203] line 7: fields[0].type: bad", e.Error())
}
