package restrictions

import (
	"iter"
	"maps"
	"strings"
	"sync"

	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/stringgen"
)

// FieldSpec is the conjunction of all restrictions on one field: the only
// values the field may take.
//
// INVARIANTS:
//   - at most one restriction per Kind
//   - a FieldSpec obtained from NewFieldSpec or Intersect has at least one
//     value; an impossible combination is reported as Unsatisfiable instead
//   - value-bearing restrictions (ranges, text, standard, whitelist) admit
//     only non-null values
//
// The zero FieldSpec is unconstrained. FieldSpecs are immutable; the value
// domain is derived once when the spec is built.
type FieldSpec struct {
	restrictions map[Kind]Restriction
	dom          *domain
	nullable     bool
	onlyNull     bool
}

// Unconstrained returns the spec that admits every value.
func Unconstrained() FieldSpec {
	return FieldSpec{dom: unconstrainedDomain(), nullable: true}
}

var unconstrainedDomain = sync.OnceValue(func() *domain {
	return &domain{kind: domainAny, strings: stringgen.AnyString()}
})

// NewFieldSpec intersects the given restrictions into a spec.
func NewFieldSpec(rs ...Restriction) (MergeResult[FieldSpec], error) {
	m := make(map[Kind]Restriction, len(rs))
	for _, r := range rs {
		existing, ok := m[r.Kind()]
		if !ok {
			m[r.Kind()] = r
			continue
		}
		merged, err := Intersect(existing, r)
		if err != nil {
			return Unsatisfiable[FieldSpec](), err
		}
		v, ok := merged.Get()
		if !ok {
			return Unsatisfiable[FieldSpec](), nil
		}
		m[r.Kind()] = v
	}
	return build(m)
}

// MustFieldSpec is like NewFieldSpec but panics on error or
// unsatisfiability. Use only in tests or for known-good restrictions.
func MustFieldSpec(rs ...Restriction) FieldSpec {
	res, err := NewFieldSpec(rs...)
	if err != nil {
		panic(err)
	}
	return res.Value()
}

// Singleton is the spec that admits exactly v: must be null for null,
// otherwise a one-value whitelist.
func Singleton(v ir.IRValue) FieldSpec {
	if ir.IsNull(v) {
		return MustFieldSpec(MustBeNull)
	}
	return MustFieldSpec(InSet(v))
}

// Intersect intersects every kind present in both specs and carries the
// rest forward. Any single-kind Unsatisfiable makes the whole result
// Unsatisfiable.
func (s FieldSpec) Intersect(other FieldSpec) (MergeResult[FieldSpec], error) {
	m := maps.Clone(s.restrictions)
	if m == nil {
		m = make(map[Kind]Restriction, len(other.restrictions))
	}
	for _, k := range allKinds {
		theirs, ok := other.restrictions[k]
		if !ok {
			continue
		}
		ours, ok := m[k]
		if !ok {
			m[k] = theirs
			continue
		}
		merged, err := Intersect(ours, theirs)
		if err != nil {
			return Unsatisfiable[FieldSpec](), err
		}
		v, ok := merged.Get()
		if !ok {
			return Unsatisfiable[FieldSpec](), nil
		}
		m[k] = v
	}
	return build(m)
}

// IntersectRestriction is Intersect with a single-restriction spec.
func (s FieldSpec) IntersectRestriction(r Restriction) (MergeResult[FieldSpec], error) {
	return s.Intersect(FieldSpec{restrictions: map[Kind]Restriction{r.Kind(): r}})
}

func build(m map[Kind]Restriction) (MergeResult[FieldSpec], error) {
	bearing := false
	for _, r := range m {
		if valueBearing(r) {
			bearing = true
		}
	}
	null, _ := m[KindNull].(NullRestriction)
	if null == MustBeNull && bearing {
		return Unsatisfiable[FieldSpec](), nil
	}

	dom, err := buildDomain(m)
	if err != nil {
		return Unsatisfiable[FieldSpec](), err
	}

	spec := FieldSpec{
		restrictions: m,
		dom:          dom,
		onlyNull:     null == MustBeNull,
		nullable:     null != MustNotBeNull && !bearing,
	}
	if !spec.nullable && dom.isEmpty() {
		return Unsatisfiable[FieldSpec](), nil
	}
	return Success(spec), nil
}

func (s FieldSpec) domain() *domain {
	if s.dom == nil {
		return unconstrainedDomain()
	}
	return s.dom
}

// Restriction returns the restriction of kind k, if any.
func (s FieldSpec) Restriction(k Kind) (Restriction, bool) {
	r, ok := s.restrictions[k]
	return r, ok
}

// Nullable reports whether null is among the spec's values.
func (s FieldSpec) Nullable() bool {
	return s.nullable || s.restrictions == nil
}

// IsUnique reports whether the field carries the uniqueness marker.
func (s FieldSpec) IsUnique() bool {
	_, ok := s.restrictions[KindUnique]
	return ok
}

// Permits reports whether v is one of the spec's values.
func (s FieldSpec) Permits(v ir.IRValue) bool {
	if ir.IsNull(v) {
		return s.Nullable()
	}
	return !s.onlyNull && s.domain().permits(v)
}

// Values is the deterministic lazy value stream: whitelisted values in
// declaration order, else range steps or generated strings, minus the
// blacklist, followed by null when the spec is nullable.
func (s FieldSpec) Values() iter.Seq[ir.IRValue] {
	return func(yield func(ir.IRValue) bool) {
		if !s.onlyNull {
			for v := range s.domain().values() {
				if !yield(v) {
					return
				}
			}
		}
		if s.Nullable() {
			yield(ir.IRNull{})
		}
	}
}

// Equal reports whether two specs hold equivalent restrictions.
func (s FieldSpec) Equal(other FieldSpec) bool {
	if len(s.restrictions) != len(other.restrictions) {
		return false
	}
	for k, r := range s.restrictions {
		o, ok := other.restrictions[k]
		if !ok || !restrictionEqual(r, o) {
			return false
		}
	}
	return true
}

func restrictionEqual(a, b Restriction) bool {
	switch x := a.(type) {
	case *TypeRestriction:
		y, ok := b.(*TypeRestriction)
		return ok && x.equal(y)
	case *NumericRestriction:
		y, ok := b.(*NumericRestriction)
		return ok && x.Equal(y)
	case *DateTimeRestriction:
		y, ok := b.(*DateTimeRestriction)
		return ok && x.Equal(y)
	case *TextualRestriction:
		y, ok := b.(*TextualRestriction)
		return ok && x.equal(y)
	case *StandardRestriction:
		y, ok := b.(*StandardRestriction)
		return ok && x.equal(y)
	case *SetRestriction:
		y, ok := b.(*SetRestriction)
		return ok && x.equal(y)
	default:
		return a == b
	}
}

// String renders the restrictions in a fixed kind order. It is recorded as
// row provenance.
func (s FieldSpec) String() string {
	var parts []string
	for _, k := range allKinds {
		if r, ok := s.restrictions[k]; ok {
			parts = append(parts, k.String()+": "+r.String())
		}
	}
	if len(parts) == 0 {
		return "{any}"
	}
	return "{" + strings.Join(parts, "; ") + "}"
}
