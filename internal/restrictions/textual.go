package restrictions

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/datagen/internal/stringgen"
)

// stringRestriction is implemented by both string-kind restrictions.
type stringRestriction interface {
	Restriction
	Generator() stringgen.Generator
}

// TextualRestriction constrains free text by length and by regex sets.
// The generator is compiled once when the restriction is built.
type TextualRestriction struct {
	MinLength int
	// MaxLength is inclusive; negative means unbounded.
	MaxLength int

	Matching      []string
	Containing    []string
	NotMatching   []string
	NotContaining []string

	gen stringgen.Generator
}

func (*TextualRestriction) restriction() {}

func (*TextualRestriction) Kind() Kind { return KindString }

// Generator returns the compiled string generator.
func (r *TextualRestriction) Generator() stringgen.Generator { return r.gen }

// Matching requires the whole value to match pattern.
func Matching(pattern string) (*TextualRestriction, error) {
	return newTextual(TextualRestriction{MaxLength: -1, Matching: []string{pattern}})
}

// Containing requires pattern to occur somewhere in the value.
func Containing(pattern string) (*TextualRestriction, error) {
	return newTextual(TextualRestriction{MaxLength: -1, Containing: []string{pattern}})
}

// NotMatching forbids values matching pattern as a whole.
func NotMatching(pattern string) (*TextualRestriction, error) {
	return newTextual(TextualRestriction{MaxLength: -1, NotMatching: []string{pattern}})
}

// NotContaining forbids values containing pattern.
func NotContaining(pattern string) (*TextualRestriction, error) {
	return newTextual(TextualRestriction{MaxLength: -1, NotContaining: []string{pattern}})
}

// LengthBetween restricts the rune count to [minLen, maxLen]; a negative
// maxLen leaves it unbounded.
func LengthBetween(minLen, maxLen int) *TextualRestriction {
	r, _ := newTextual(TextualRestriction{MinLength: max(minLen, 0), MaxLength: maxLen})
	return r
}

// newTextual normalises the regex sets and compiles the generator.
// Length-only restrictions never fail.
func newTextual(t TextualRestriction) (*TextualRestriction, error) {
	out := &TextualRestriction{
		MinLength:     t.MinLength,
		MaxLength:     t.MaxLength,
		Matching:      normalise(t.Matching),
		Containing:    normalise(t.Containing),
		NotMatching:   normalise(t.NotMatching),
		NotContaining: normalise(t.NotContaining),
	}

	gen := stringgen.NewLengthGenerator(out.MinLength, out.MaxLength)
	narrow := func(next stringgen.Generator) error {
		var err error
		gen, err = gen.Intersect(next)
		return err
	}

	for _, p := range out.Matching {
		g, err := stringgen.NewRegexGenerator(p, true)
		if err != nil {
			return nil, err
		}
		if err := narrow(g); err != nil {
			return nil, err
		}
	}
	for _, p := range out.Containing {
		g, err := stringgen.NewRegexGenerator(p, false)
		if err != nil {
			return nil, err
		}
		if err := narrow(g); err != nil {
			return nil, err
		}
	}
	for _, p := range out.NotMatching {
		g, err := negated(p, true)
		if err != nil {
			return nil, err
		}
		if err := narrow(g); err != nil {
			return nil, err
		}
	}
	for _, p := range out.NotContaining {
		g, err := negated(p, false)
		if err != nil {
			return nil, err
		}
		if err := narrow(g); err != nil {
			return nil, err
		}
	}

	out.gen = gen
	return out, nil
}

func negated(pattern string, full bool) (stringgen.Generator, error) {
	g, err := stringgen.NewRegexGenerator(pattern, full)
	if err != nil {
		return nil, err
	}
	rg, ok := g.(*stringgen.RegexGenerator)
	if !ok {
		// the pattern matches nothing, so nothing is excluded
		return stringgen.AnyString(), nil
	}
	return rg.Complement(), nil
}

func normalise(patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}
	out := slices.Clone(patterns)
	slices.Sort(out)
	return slices.Compact(out)
}

// Intersect merges lengths and regex sets. An empty language is
// Unsatisfiable.
func (r *TextualRestriction) Intersect(other *TextualRestriction) (MergeResult[*TextualRestriction], error) {
	maxLen := r.MaxLength
	switch {
	case maxLen < 0:
		maxLen = other.MaxLength
	case other.MaxLength >= 0:
		maxLen = min(maxLen, other.MaxLength)
	}

	out := &TextualRestriction{
		MinLength:     max(r.MinLength, other.MinLength),
		MaxLength:     maxLen,
		Matching:      normalise(append(slices.Clone(r.Matching), other.Matching...)),
		Containing:    normalise(append(slices.Clone(r.Containing), other.Containing...)),
		NotMatching:   normalise(append(slices.Clone(r.NotMatching), other.NotMatching...)),
		NotContaining: normalise(append(slices.Clone(r.NotContaining), other.NotContaining...)),
	}
	gen, err := r.gen.Intersect(other.gen)
	if err != nil {
		return Unsatisfiable[*TextualRestriction](), &UnsupportedCombinationError{
			Left: describe(r), Right: describe(other), Err: err,
		}
	}
	if stringgen.IsEmpty(gen) {
		return Unsatisfiable[*TextualRestriction](), nil
	}
	out.gen = gen
	return Success(out), nil
}

func (r *TextualRestriction) equal(other *TextualRestriction) bool {
	return r.MinLength == other.MinLength &&
		(r.MaxLength == other.MaxLength || (r.MaxLength < 0 && other.MaxLength < 0)) &&
		slices.Equal(r.Matching, other.Matching) &&
		slices.Equal(r.Containing, other.Containing) &&
		slices.Equal(r.NotMatching, other.NotMatching) &&
		slices.Equal(r.NotContaining, other.NotContaining)
}

func (r *TextualRestriction) String() string {
	var parts []string
	switch {
	case r.MaxLength >= 0:
		parts = append(parts, fmt.Sprintf("length %d..%d", r.MinLength, r.MaxLength))
	case r.MinLength > 0:
		parts = append(parts, fmt.Sprintf("length >= %d", r.MinLength))
	}
	add := func(verb string, patterns []string) {
		for _, p := range patterns {
			parts = append(parts, fmt.Sprintf("%s /%s/", verb, p))
		}
	}
	add("matching", r.Matching)
	add("containing", r.Containing)
	add("not matching", r.NotMatching)
	add("not containing", r.NotContaining)
	if len(parts) == 0 {
		return "any text"
	}
	return strings.Join(parts, ", ")
}
