package restrictions

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/stringgen"
)

// ValueType is the type of a field's non-null values.
type ValueType int

const (
	TypeNumeric ValueType = iota + 1
	TypeString
	TypeDateTime
)

func (t ValueType) String() string {
	switch t {
	case TypeNumeric:
		return "numeric"
	case TypeString:
		return "string"
	case TypeDateTime:
		return "datetime"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// TypeRestriction carries what a field's declared type implies about its
// non-null values. Unlike value-bearing restrictions it never forbids null,
// so a nullable typed field can still be fixed to null.
type TypeRestriction struct {
	Type ValueType

	// Integral restricts numeric values to whole numbers.
	Integral bool

	// Granularity restricts datetime values to whole units; empty means
	// milliseconds.
	Granularity ir.TimeUnit

	// Standard restricts string values to a check-digit code family.
	Standard *stringgen.Checksum

	// Names restricts string values to a finite vocabulary; nil means any.
	Names []string
}

func (*TypeRestriction) restriction() {}

func (*TypeRestriction) Kind() Kind { return KindType }

// OfType restricts non-null values to t.
func OfType(t ValueType) *TypeRestriction {
	return &TypeRestriction{Type: t}
}

// Intersect combines two type restrictions. Different value types or
// different code families have no common values.
func (r *TypeRestriction) Intersect(other *TypeRestriction) MergeResult[*TypeRestriction] {
	if r.Type != other.Type {
		return Unsatisfiable[*TypeRestriction]()
	}
	out := &TypeRestriction{
		Type:     r.Type,
		Integral:    r.Integral || other.Integral,
		Granularity: r.Granularity,
		Standard:    r.Standard,
	}
	if other.Granularity != "" && (r.Granularity == "" || other.Granularity.Coarser(r.Granularity)) {
		out.Granularity = other.Granularity
	}
	switch {
	case other.Standard == nil:
	case r.Standard == nil:
		out.Standard = other.Standard
	case r.Standard.Name != other.Standard.Name:
		return Unsatisfiable[*TypeRestriction]()
	}
	switch {
	case r.Names == nil:
		out.Names = other.Names
	case other.Names == nil:
		out.Names = r.Names
	default:
		for _, n := range r.Names {
			if slices.Contains(other.Names, n) {
				out.Names = append(out.Names, n)
			}
		}
		if len(out.Names) == 0 {
			return Unsatisfiable[*TypeRestriction]()
		}
	}
	return Success(out)
}

func (r *TypeRestriction) equal(other *TypeRestriction) bool {
	if r.Type != other.Type || r.Integral != other.Integral || r.Granularity != other.Granularity {
		return false
	}
	if (r.Standard == nil) != (other.Standard == nil) {
		return false
	}
	if r.Standard != nil && r.Standard.Name != other.Standard.Name {
		return false
	}
	return sameStrings(r.Names, other.Names)
}

func sameStrings(a, b []string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(slices.Compact(x), slices.Compact(y))
}

func (r *TypeRestriction) String() string {
	parts := []string{r.Type.String()}
	if r.Integral {
		parts = append(parts, "integral")
	}
	if r.Granularity != "" {
		parts = append(parts, "in "+string(r.Granularity))
	}
	if r.Standard != nil {
		parts = append(parts, r.Standard.Name)
	}
	if r.Names != nil {
		parts = append(parts, fmt.Sprintf("%d names", len(r.Names)))
	}
	return strings.Join(parts, " ")
}
