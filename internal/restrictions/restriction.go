package restrictions

import "fmt"

// Kind identifies a restriction category. A FieldSpec holds at most one
// restriction per kind.
type Kind int

const (
	KindType Kind = iota
	KindNumeric
	KindDateTime
	KindString
	KindSet
	KindNull
	KindUnique
)

var kindNames = [...]string{
	KindType:     "type",
	KindNumeric:  "numeric",
	KindDateTime: "datetime",
	KindString:   "string",
	KindSet:      "set",
	KindNull:     "null",
	KindUnique:   "unique",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// allKinds lists kinds in rendering order.
var allKinds = []Kind{KindType, KindNull, KindNumeric, KindDateTime, KindString, KindSet, KindUnique}

// Restriction is a sealed interface over the closed set of restriction
// kinds: *TypeRestriction, *NumericRestriction, *DateTimeRestriction,
// *TextualRestriction, *StandardRestriction, *SetRestriction,
// NullRestriction and UniqueRestriction.
type Restriction interface {
	restriction() // Sealed
	Kind() Kind
	String() string
}

// valueBearing reports whether r only admits non-null values. Type
// restrictions describe non-null values but do not forbid null.
func valueBearing(r Restriction) bool {
	switch v := r.(type) {
	case *NumericRestriction, *DateTimeRestriction, *TextualRestriction, *StandardRestriction:
		return true
	case *SetRestriction:
		return v.Allowed != nil
	default:
		return false
	}
}

// Intersect is the per-kind intersection table. Every supported pair is
// listed; anything else is an *UnsupportedCombinationError.
func Intersect(a, b Restriction) (MergeResult[Restriction], error) {
	switch x := a.(type) {
	case *TypeRestriction:
		if y, ok := b.(*TypeRestriction); ok {
			return widen(x.Intersect(y)), nil
		}
	case *NumericRestriction:
		if y, ok := b.(*NumericRestriction); ok {
			return widen(x.Intersect(y)), nil
		}
	case *DateTimeRestriction:
		if y, ok := b.(*DateTimeRestriction); ok {
			return widen(x.Intersect(y)), nil
		}
	case *TextualRestriction:
		switch y := b.(type) {
		case *TextualRestriction:
			r, err := x.Intersect(y)
			return widen(r), err
		case *StandardRestriction:
			r, err := y.IntersectTextual(x)
			return widen(r), err
		}
	case *StandardRestriction:
		switch y := b.(type) {
		case *StandardRestriction:
			r, err := x.Intersect(y)
			return widen(r), err
		case *TextualRestriction:
			r, err := x.IntersectTextual(y)
			return widen(r), err
		}
	case *SetRestriction:
		if y, ok := b.(*SetRestriction); ok {
			return widen(x.Intersect(y)), nil
		}
	case NullRestriction:
		if y, ok := b.(NullRestriction); ok {
			return widen(x.Intersect(y)), nil
		}
	case UniqueRestriction:
		if y, ok := b.(UniqueRestriction); ok {
			return widen(x.Intersect(y)), nil
		}
	}
	return Unsatisfiable[Restriction](), &UnsupportedCombinationError{
		Left:  describe(a),
		Right: describe(b),
	}
}

func widen[T Restriction](m MergeResult[T]) MergeResult[Restriction] {
	return mapResult(m, func(v T) Restriction { return v })
}

func describe(r Restriction) string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s", r.Kind(), r.String())
}
