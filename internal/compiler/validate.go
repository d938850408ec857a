package compiler

import (
	"fmt"

	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/profile"
	"github.com/roach88/datagen/internal/stringgen"
)

// Validation error codes (E200-E299)
const (
	ErrUndeclaredField = "E201" // rule references a field that is not declared
	ErrDuplicateField  = "E202" // field declared twice
	ErrUnknownType     = "E203" // field type not supported
	ErrBadRegex        = "E204" // pattern does not compile
	ErrEmptySet        = "E205" // inSet with no values
	ErrUnknownStandard = "E206" // matchesStandard names no known family
	ErrSelfRelation    = "E207" // field related to itself
	ErrInvalidOperand  = "E208" // negative length or similar
	ErrEmptyRule       = "E209" // rule with no constraints
	ErrUnknownUnit     = "E210" // granularTo or offsetUnit names no time unit
)

// ValidationError represents a profile validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled profile. Returns all errors found (does not
// fail-fast).
func Validate(p *profile.Profile) []ValidationError {
	var errs []ValidationError

	declared := make(map[string]bool, len(p.Fields))
	for i, f := range p.Fields {
		path := fmt.Sprintf("fields[%d]", i)

		// E202: duplicate field name
		if declared[f.Name] {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate field name: %q", f.Name),
				Code:    ErrDuplicateField,
			})
		}
		declared[f.Name] = true

		// E203: unknown type
		if !f.Type.Valid() {
			errs = append(errs, ValidationError{
				Field:   path + ".type",
				Message: fmt.Sprintf("unknown type %q for field %q, expected one of %v", f.Type, f.Name, profile.FieldTypes),
				Code:    ErrUnknownType,
			})
		}
	}

	for i, rule := range p.Rules {
		path := fmt.Sprintf("rules[%d]", i)

		// E209: a rule must say something
		if len(rule.Constraints) == 0 {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("rule %q has no constraints", rule.Name),
				Code:    ErrEmptyRule,
			})
		}

		for j, c := range rule.Constraints {
			errs = append(errs, validateConstraint(c, fmt.Sprintf("%s.constraints[%d]", path, j), declared)...)
		}
	}

	return errs
}

// validateConstraint walks a constraint tree and checks each leaf.
func validateConstraint(c profile.Constraint, path string, declared map[string]bool) []ValidationError {
	var errs []ValidationError

	switch v := c.(type) {
	case profile.Atomic:
		errs = append(errs, undeclared(v, path, declared)...)
		errs = append(errs, validateAtomic(v, path)...)
	case profile.Relation:
		errs = append(errs, undeclared(v, path, declared)...)
		// E207: a field compared with itself
		if v.Field == v.Other {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("field %q is related to itself", v.Field),
				Code:    ErrSelfRelation,
			})
		}
		if v.OffsetUnit != "" {
			errs = append(errs, unknownUnit(v.OffsetUnit, path)...)
		}
	case profile.AllOf:
		for i, inner := range v {
			errs = append(errs, validateConstraint(inner, fmt.Sprintf("%s.allOf[%d]", path, i), declared)...)
		}
	case profile.AnyOf:
		for i, inner := range v {
			errs = append(errs, validateConstraint(inner, fmt.Sprintf("%s.anyOf[%d]", path, i), declared)...)
		}
	case profile.Not:
		errs = append(errs, validateConstraint(v.Inner, path+".not", declared)...)
	case profile.If:
		errs = append(errs, validateConstraint(v.Cond, path+".if", declared)...)
		errs = append(errs, validateConstraint(v.Then, path+".then", declared)...)
		if v.Else != nil {
			errs = append(errs, validateConstraint(v.Else, path+".else", declared)...)
		}
	}
	return errs
}

// undeclared reports E201 for each field of a leaf constraint that is not
// declared.
func undeclared(c profile.Constraint, path string, declared map[string]bool) []ValidationError {
	var errs []ValidationError
	for _, name := range profile.Fields(c) {
		if !declared[name] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("undeclared field %q", name),
				Code:    ErrUndeclaredField,
			})
		}
	}
	return errs
}

func validateAtomic(a profile.Atomic, path string) []ValidationError {
	var errs []ValidationError
	switch a.Op {
	case profile.OpMatchingRegex, profile.OpContainingRegex:
		// E204: pattern must compile
		if _, err := stringgen.NewRegexGenerator(a.Pattern, a.Op == profile.OpMatchingRegex); err != nil {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("invalid regex /%s/: %v", a.Pattern, err),
				Code:    ErrBadRegex,
			})
		}
	case profile.OpInSet:
		// E205: empty set
		if len(a.Values) == 0 {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("inSet for field %q has no values", a.Field),
				Code:    ErrEmptySet,
			})
		}
	case profile.OpMatchesStandard:
		// E206: unknown standard
		if _, ok := stringgen.LookupStandard(a.Standard); !ok {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("unknown standard %q, expected ISIN, SEDOL or CUSIP", a.Standard),
				Code:    ErrUnknownStandard,
			})
		}
	case profile.OpGranularTo:
		if a.Unit != "" {
			errs = append(errs, unknownUnit(a.Unit, path)...)
			break
		}
		fallthrough
	case profile.OpOfLength, profile.OpLongerThan, profile.OpShorterThan:
		// E208: counts are non-negative
		if a.N < 0 {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("%s needs a non-negative operand, got %d", a.Op, a.N),
				Code:    ErrInvalidOperand,
			})
		}
	}
	return errs
}

// unknownUnit reports E210 when u is not a time unit.
func unknownUnit(u ir.TimeUnit, path string) []ValidationError {
	if u.Valid() {
		return nil
	}
	return []ValidationError{{
		Field:   path,
		Message: fmt.Sprintf("unknown time unit %q, expected one of %v", u, ir.TimeUnits),
		Code:    ErrUnknownUnit,
	}}
}
