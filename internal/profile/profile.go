package profile

import (
	"fmt"
	"slices"

	"github.com/roach88/datagen/internal/ir"
)

// FieldType is the declared type of a field.
type FieldType string

const (
	TypeInteger   FieldType = "integer"
	TypeDecimal   FieldType = "decimal"
	TypeString    FieldType = "string"
	TypeISIN      FieldType = "isin"
	TypeSEDOL     FieldType = "sedol"
	TypeCUSIP     FieldType = "cusip"
	TypeFirstName FieldType = "firstname"
	TypeLastName  FieldType = "lastname"
	TypeFullName  FieldType = "fullname"
	TypeDate      FieldType = "date"
	TypeDateTime  FieldType = "datetime"
)

// FieldTypes lists every supported type in documentation order.
var FieldTypes = []FieldType{
	TypeInteger, TypeDecimal, TypeString,
	TypeISIN, TypeSEDOL, TypeCUSIP,
	TypeFirstName, TypeLastName, TypeFullName,
	TypeDate, TypeDateTime,
}

// Valid reports whether t is a supported type.
func (t FieldType) Valid() bool {
	return slices.Contains(FieldTypes, t)
}

// Numeric reports whether values of t are numbers.
func (t FieldType) Numeric() bool {
	return t == TypeInteger || t == TypeDecimal
}

// Temporal reports whether values of t are datetimes. A date is a
// datetime at midnight UTC.
func (t FieldType) Temporal() bool {
	return t == TypeDate || t == TypeDateTime
}

// Standard returns the check-digit family name for code types.
func (t FieldType) Standard() (string, bool) {
	switch t {
	case TypeISIN:
		return "ISIN", true
	case TypeSEDOL:
		return "SEDOL", true
	case TypeCUSIP:
		return "CUSIP", true
	default:
		return "", false
	}
}

// IsName reports whether t draws values from a reference name list.
func (t FieldType) IsName() bool {
	return t == TypeFirstName || t == TypeLastName || t == TypeFullName
}

// FieldDecl declares one field.
type FieldDecl struct {
	Name     string    `json:"name" yaml:"name"`
	Type     FieldType `json:"type" yaml:"type"`
	Nullable bool      `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Unique   bool      `json:"unique,omitempty" yaml:"unique,omitempty"`
}

// Field returns the ir.Field for the declaration.
func (d FieldDecl) Field() ir.Field {
	return ir.NewField(d.Name)
}

// Rule is a named group of constraints that must all hold. In violating
// mode a rule is negated as a whole.
type Rule struct {
	Name        string       `json:"name" yaml:"name"`
	Constraints []Constraint `json:"-" yaml:"-"`
}

// Profile is a compiled datagen profile.
type Profile struct {
	Name   string      `json:"name"`
	Fields []FieldDecl `json:"fields"`
	Rules  []Rule      `json:"rules"`
}

// Field returns the declaration named name.
func (p *Profile) Field(name string) (FieldDecl, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDecl{}, false
}

// FieldOrder returns the declared fields in declaration order.
func (p *Profile) FieldOrder() []ir.Field {
	out := make([]ir.Field, len(p.Fields))
	for i, f := range p.Fields {
		out[i] = f.Field()
	}
	return out
}

// Undeclared returns, in first-use order, every field referenced by a rule
// but not declared.
func (p *Profile) Undeclared() []string {
	declared := make(map[string]bool, len(p.Fields))
	for _, f := range p.Fields {
		declared[f.Name] = true
	}
	var missing []string
	for _, rule := range p.Rules {
		for _, c := range rule.Constraints {
			for _, name := range Fields(c) {
				if !declared[name] && !slices.Contains(missing, name) {
					missing = append(missing, name)
				}
			}
		}
	}
	return missing
}

// WithRules returns a shallow copy of p with its rules replaced.
func (p *Profile) WithRules(rules []Rule) *Profile {
	return &Profile{
		Name:   p.Name,
		Fields: p.Fields,
		Rules:  rules,
	}
}

// Fields returns the field names referenced by c, in first-use order.
func Fields(c Constraint) []string {
	var out []string
	add := func(name string) {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	var walk func(Constraint)
	walk = func(c Constraint) {
		switch v := c.(type) {
		case Atomic:
			add(v.Field)
		case Relation:
			add(v.Field)
			add(v.Other)
		case AllOf:
			for _, inner := range v {
				walk(inner)
			}
		case AnyOf:
			for _, inner := range v {
				walk(inner)
			}
		case Not:
			walk(v.Inner)
		case If:
			walk(v.Cond)
			walk(v.Then)
			if v.Else != nil {
				walk(v.Else)
			}
		default:
			panic(fmt.Sprintf("profile: unknown constraint %T", c))
		}
	}
	walk(c)
	return out
}
