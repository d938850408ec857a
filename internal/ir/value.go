package ir

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// IRValue is a sealed interface representing a concrete generated value.
// Only IRNull, IRString, IRNumber and IRDateTime implement this.
// NO floats - numbers are exact decimals so that granularity stepping and
// range bounds never drift.
type IRValue interface {
	irValue() // Sealed - only these types implement it
	String() string
}

// IRNull represents the absence of a value for a nullable field.
type IRNull struct{}

func (IRNull) irValue() {}

func (IRNull) String() string { return "null" }

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

func (s IRString) String() string { return string(s) }

// IRNumber represents an exact decimal number.
// The wrapped decimal is never mutated after construction; accessors hand
// out copies.
type IRNumber struct {
	dec *apd.Decimal
}

func (IRNumber) irValue() {}

// String renders the number in plain (non-exponent) notation.
func (n IRNumber) String() string {
	if n.dec == nil {
		return "0"
	}
	return n.dec.Text('f')
}

// Decimal returns a copy of the underlying decimal.
func (n IRNumber) Decimal() *apd.Decimal {
	d := new(apd.Decimal)
	if n.dec != nil {
		d.Set(n.dec)
	}
	return d
}

// Cmp compares two numbers: -1, 0 or +1.
func (n IRNumber) Cmp(other IRNumber) int {
	return n.Decimal().Cmp(other.Decimal())
}

// NewIRString creates an IRString value.
func NewIRString(s string) IRString {
	return IRString(s)
}

// NewIRNumber creates an IRNumber holding a copy of d.
func NewIRNumber(d *apd.Decimal) IRNumber {
	return IRNumber{dec: new(apd.Decimal).Set(d)}
}

// NewIRInt creates an integral IRNumber.
func NewIRInt(n int64) IRNumber {
	return IRNumber{dec: apd.New(n, 0)}
}

// ParseIRNumber parses a decimal literal such as "18", "-0.25" or "1e3".
func ParseIRNumber(s string) (IRNumber, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return IRNumber{}, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return IRNumber{dec: d}, nil
}

// MustParseIRNumber is like ParseIRNumber but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseIRNumber(s string) IRNumber {
	n, err := ParseIRNumber(s)
	if err != nil {
		panic(err)
	}
	return n
}

// IsNull reports whether v is the null value.
func IsNull(v IRValue) bool {
	_, ok := v.(IRNull)
	return ok
}

// Equal reports value equality. Numbers compare numerically, so 1.0 equals 1.
func Equal(a, b IRValue) bool {
	switch av := a.(type) {
	case IRNull:
		_, ok := b.(IRNull)
		return ok
	case IRString:
		bv, ok := b.(IRString)
		return ok && av == bv
	case IRNumber:
		bv, ok := b.(IRNumber)
		return ok && av.Cmp(bv) == 0
	case IRDateTime:
		bv, ok := b.(IRDateTime)
		return ok && av.Cmp(bv) == 0
	default:
		return false
	}
}

// Key returns a string usable as a map key such that Key(a) == Key(b)
// exactly when Equal(a, b).
func Key(v IRValue) string {
	switch val := v.(type) {
	case IRNull:
		return "z:"
	case IRString:
		return "s:" + string(val)
	case IRNumber:
		reduced, _ := new(apd.Decimal).Reduce(val.Decimal())
		if reduced.IsZero() {
			return "n:0"
		}
		return "n:" + reduced.Text('f')
	case IRDateTime:
		return fmt.Sprintf("t:%d", val.t.UnixMilli())
	default:
		return fmt.Sprintf("?:%v", v)
	}
}
