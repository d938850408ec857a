package profile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/datagen/internal/ir"
)

// Constraint is a sealed interface over the closed set of constraint forms:
// Atomic, Relation, AllOf, AnyOf, Not and If.
type Constraint interface {
	constraint() // Sealed
	String() string
}

// Op selects the predicate of an Atomic constraint. The String form is the
// profile keyword.
type Op int

const (
	OpIsNull Op = iota + 1
	OpInSet
	OpEqualTo
	OpGreaterThan
	OpGreaterThanOrEqualTo
	OpLessThan
	OpLessThanOrEqualTo
	OpGranularTo
	OpMatchingRegex
	OpContainingRegex
	OpOfLength
	OpLongerThan
	OpShorterThan
	OpMatchesStandard
	OpIsUnique
	OpAfter
	OpAfterOrAt
	OpBefore
	OpBeforeOrAt
)

var opNames = map[Op]string{
	OpIsNull:               "isNull",
	OpInSet:                "inSet",
	OpEqualTo:              "equalTo",
	OpGreaterThan:          "greaterThan",
	OpGreaterThanOrEqualTo: "greaterThanOrEqualTo",
	OpLessThan:             "lessThan",
	OpLessThanOrEqualTo:    "lessThanOrEqualTo",
	OpGranularTo:           "granularTo",
	OpMatchingRegex:        "matchingRegex",
	OpContainingRegex:      "containingRegex",
	OpOfLength:             "ofLength",
	OpLongerThan:           "longerThan",
	OpShorterThan:          "shorterThan",
	OpMatchesStandard:      "matchesStandard",
	OpIsUnique:             "isUnique",
	OpAfter:                "after",
	OpAfterOrAt:            "afterOrAt",
	OpBefore:               "before",
	OpBeforeOrAt:           "beforeOrAt",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// LookupOp maps a profile keyword to its Op.
func LookupOp(keyword string) (Op, bool) {
	for op, name := range opNames {
		if name == keyword {
			return op, true
		}
	}
	return 0, false
}

// Atomic is a single predicate on one field. Which operand is meaningful
// depends on Op:
//
//	equalTo                         Value
//	greaterThan .. lessThanOrEqualTo Value (an ir.IRNumber)
//	after .. beforeOrAt             Value (an ir.IRDateTime)
//	inSet                           Values
//	matchingRegex, containingRegex  Pattern
//	matchesStandard                 Standard
//	granularTo                      N, or Unit for datetimes
//	ofLength, longerThan, shorterThan  N
type Atomic struct {
	Field    string
	Op       Op
	Value    ir.IRValue
	Values   []ir.IRValue
	Pattern  string
	Standard string
	N        int
	Unit     ir.TimeUnit
}

func (Atomic) constraint() {}

func (a Atomic) String() string {
	var operand string
	switch a.Op {
	case OpIsNull, OpIsUnique:
		return a.Field + " " + a.Op.String()
	case OpEqualTo, OpGreaterThan, OpGreaterThanOrEqualTo, OpLessThan, OpLessThanOrEqualTo,
		OpAfter, OpAfterOrAt, OpBefore, OpBeforeOrAt:
		operand = quote(a.Value)
	case OpInSet:
		parts := make([]string, len(a.Values))
		for i, v := range a.Values {
			parts[i] = quote(v)
		}
		operand = "[" + strings.Join(parts, ", ") + "]"
	case OpMatchingRegex, OpContainingRegex:
		operand = "/" + a.Pattern + "/"
	case OpMatchesStandard:
		operand = a.Standard
	case OpGranularTo:
		if a.Unit != "" {
			operand = string(a.Unit)
		} else {
			operand = strconv.Itoa(a.N)
		}
	default:
		operand = strconv.Itoa(a.N)
	}
	return a.Field + " " + a.Op.String() + " " + operand
}

func quote(v ir.IRValue) string {
	if s, ok := v.(ir.IRString); ok {
		return strconv.Quote(string(s))
	}
	if v == nil {
		return "<nil>"
	}
	return v.String()
}

// IsNull requires field to be null.
func IsNull(field string) Atomic {
	return Atomic{Field: field, Op: OpIsNull}
}

// IsNotNull requires field to hold a value.
func IsNotNull(field string) Not {
	return Not{Inner: IsNull(field)}
}

// InSet requires field to be one of values.
func InSet(field string, values ...ir.IRValue) Atomic {
	return Atomic{Field: field, Op: OpInSet, Values: values}
}

// EqualTo requires field to equal v.
func EqualTo(field string, v ir.IRValue) Atomic {
	return Atomic{Field: field, Op: OpEqualTo, Value: v}
}

// Compare builds a numeric comparison; op must be one of the four ordering
// operators.
func Compare(field string, op Op, n ir.IRNumber) Atomic {
	return Atomic{Field: field, Op: op, Value: n}
}

// GranularTo restricts field to multiples of 10^-places.
func GranularTo(field string, places int) Atomic {
	return Atomic{Field: field, Op: OpGranularTo, N: places}
}

// GranularToUnit restricts a datetime field to whole units.
func GranularToUnit(field string, unit ir.TimeUnit) Atomic {
	return Atomic{Field: field, Op: OpGranularTo, Unit: unit}
}

// Temporal builds a datetime comparison; op must be after, afterOrAt,
// before or beforeOrAt.
func Temporal(field string, op Op, t ir.IRDateTime) Atomic {
	return Atomic{Field: field, Op: op, Value: t}
}

// MatchingRegex requires the whole value to match pattern.
func MatchingRegex(field, pattern string) Atomic {
	return Atomic{Field: field, Op: OpMatchingRegex, Pattern: pattern}
}

// ContainingRegex requires pattern to occur in the value.
func ContainingRegex(field, pattern string) Atomic {
	return Atomic{Field: field, Op: OpContainingRegex, Pattern: pattern}
}

// Length builds a length constraint; op must be ofLength, longerThan or
// shorterThan.
func Length(field string, op Op, n int) Atomic {
	return Atomic{Field: field, Op: op, N: n}
}

// MatchesStandard requires a valid code of the named family.
func MatchesStandard(field, standard string) Atomic {
	return Atomic{Field: field, Op: OpMatchesStandard, Standard: standard}
}

// IsUnique forbids repeated values of field across rows.
func IsUnique(field string) Atomic {
	return Atomic{Field: field, Op: OpIsUnique}
}

// RelOp selects the comparison of a Relation.
type RelOp int

const (
	RelEqualTo RelOp = iota + 1
	RelNotEqualTo
	RelGreaterThan
	RelGreaterThanOrEqualTo
	RelLessThan
	RelLessThanOrEqualTo
)

var relNames = map[RelOp]string{
	RelEqualTo:              "equalToField",
	RelNotEqualTo:           "notEqualToField",
	RelGreaterThan:          "greaterThanField",
	RelGreaterThanOrEqualTo: "greaterThanOrEqualToField",
	RelLessThan:             "lessThanField",
	RelLessThanOrEqualTo:    "lessThanOrEqualToField",
}

func (o RelOp) String() string {
	if name, ok := relNames[o]; ok {
		return name
	}
	return fmt.Sprintf("relop(%d)", int(o))
}

// LookupRelOp maps a profile keyword to its RelOp.
func LookupRelOp(keyword string) (RelOp, bool) {
	for op, name := range relNames {
		if name == keyword {
			return op, true
		}
	}
	return 0, false
}

// Negate returns the comparison that holds exactly when o does not.
func (o RelOp) Negate() RelOp {
	switch o {
	case RelEqualTo:
		return RelNotEqualTo
	case RelNotEqualTo:
		return RelEqualTo
	case RelGreaterThan:
		return RelLessThanOrEqualTo
	case RelGreaterThanOrEqualTo:
		return RelLessThan
	case RelLessThan:
		return RelGreaterThanOrEqualTo
	case RelLessThanOrEqualTo:
		return RelGreaterThan
	default:
		return o
	}
}

// Relation compares Field against Other plus Offset: for example
// "end greaterThanField start" with offset 1 means end > start + 1.
// OffsetUnit scales the offset when Other holds datetimes; datetimes
// default to days.
type Relation struct {
	Field      string
	Op         RelOp
	Other      string
	Offset     *apd.Decimal
	OffsetUnit ir.TimeUnit
}

func (Relation) constraint() {}

func (r Relation) String() string {
	s := r.Field + " " + r.Op.String() + " " + r.Other
	if r.Offset != nil && !r.Offset.IsZero() {
		s += " offset " + r.Offset.Text('f')
		if r.OffsetUnit != "" {
			s += " " + string(r.OffsetUnit)
		}
	}
	return s
}

// AllOf holds when every constraint holds.
type AllOf []Constraint

func (AllOf) constraint() {}

func (c AllOf) String() string { return "allOf " + list(c) }

// AnyOf holds when at least one constraint holds.
type AnyOf []Constraint

func (AnyOf) constraint() {}

func (c AnyOf) String() string { return "anyOf " + list(c) }

func list(cs []Constraint) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Not negates a constraint.
type Not struct {
	Inner Constraint
}

func (Not) constraint() {}

func (c Not) String() string { return "not (" + c.Inner.String() + ")" }

// If requires Then when Cond holds and Else (if any) otherwise.
type If struct {
	Cond Constraint
	Then Constraint
	Else Constraint
}

func (If) constraint() {}

func (c If) String() string {
	s := "if (" + c.Cond.String() + ") then (" + c.Then.String() + ")"
	if c.Else != nil {
		s += " else (" + c.Else.String() + ")"
	}
	return s
}
