package restrictions

import (
	"github.com/roach88/datagen/internal/stringgen"
)

// StandardRestriction requires values to be valid codes of a check-digit
// family. Text optionally narrows the codes further; the checksum survives
// every intersection because the generator is always rebuilt from the
// family.
type StandardRestriction struct {
	Family *stringgen.Checksum
	Text   *TextualRestriction

	gen stringgen.Generator
}

func (*StandardRestriction) restriction() {}

func (*StandardRestriction) Kind() Kind { return KindString }

// Generator returns the compiled code generator.
func (r *StandardRestriction) Generator() stringgen.Generator { return r.gen }

// MatchesStandard restricts values to codes of family.
func MatchesStandard(family *stringgen.Checksum) (*StandardRestriction, error) {
	res, err := newStandard(family, nil)
	if err != nil {
		return nil, err
	}
	r, ok := res.Get()
	if !ok {
		return &StandardRestriction{Family: family, gen: stringgen.NoStrings{}}, nil
	}
	return r, nil
}

func newStandard(family *stringgen.Checksum, text *TextualRestriction) (MergeResult[*StandardRestriction], error) {
	gen, err := stringgen.NewChecksumGenerator(family)
	if err != nil {
		return Unsatisfiable[*StandardRestriction](), err
	}
	if text != nil {
		gen, err = gen.Intersect(text.gen)
		if err != nil {
			return Unsatisfiable[*StandardRestriction](), &UnsupportedCombinationError{
				Left:  family.Name + " code",
				Right: describe(text),
				Err:   err,
			}
		}
	}
	if stringgen.IsEmpty(gen) {
		return Unsatisfiable[*StandardRestriction](), nil
	}
	return Success(&StandardRestriction{Family: family, Text: text, gen: gen}), nil
}

// Intersect combines two standards. Different families are disjoint code
// spaces.
func (r *StandardRestriction) Intersect(other *StandardRestriction) (MergeResult[*StandardRestriction], error) {
	if r.Family.Name != other.Family.Name {
		return Unsatisfiable[*StandardRestriction](), nil
	}
	text, ok, err := mergeText(r.Text, other.Text)
	if err != nil || !ok {
		return Unsatisfiable[*StandardRestriction](), err
	}
	return newStandard(r.Family, text)
}

// IntersectTextual narrows the codes by a free-text restriction.
func (r *StandardRestriction) IntersectTextual(t *TextualRestriction) (MergeResult[*StandardRestriction], error) {
	text, ok, err := mergeText(r.Text, t)
	if err != nil || !ok {
		return Unsatisfiable[*StandardRestriction](), err
	}
	return newStandard(r.Family, text)
}

func mergeText(a, b *TextualRestriction) (*TextualRestriction, bool, error) {
	switch {
	case a == nil:
		return b, true, nil
	case b == nil:
		return a, true, nil
	}
	res, err := a.Intersect(b)
	if err != nil {
		return nil, false, err
	}
	t, ok := res.Get()
	return t, ok, nil
}

func (r *StandardRestriction) equal(other *StandardRestriction) bool {
	if r.Family.Name != other.Family.Name || (r.Text == nil) != (other.Text == nil) {
		return false
	}
	return r.Text == nil || r.Text.equal(other.Text)
}

func (r *StandardRestriction) String() string {
	if r.Text == nil {
		return r.Family.Name + " code"
	}
	return r.Family.Name + " code, " + r.Text.String()
}
