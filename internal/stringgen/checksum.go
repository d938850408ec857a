package stringgen

import (
	"fmt"
	"iter"
	"unicode/utf8"
)

// CheckFunc computes the check character for a code body. It returns false
// when the body contains characters the scheme cannot weigh.
type CheckFunc func(body string) (rune, bool)

// Every supported family appends a decimal check digit.
const (
	checkLo = '0'
	checkHi = '9'
)

// Checksum describes a family of check-digit codes.
type Checksum struct {
	Name        string
	BodyPattern string
	Check       CheckFunc
}

var (
	// ISIN is the ISO 6166 securities identifier: country prefix, nine
	// alphanumerics and a Luhn check digit over the letter-expanded body.
	ISIN = &Checksum{
		Name:        "ISIN",
		BodyPattern: `[A-Z]{2}[A-Z0-9]{9}`,
		Check:       isinCheckDigit,
	}

	// SEDOL is the London Stock Exchange identifier: six vowel-free
	// alphanumerics and a weighted check digit.
	SEDOL = &Checksum{
		Name:        "SEDOL",
		BodyPattern: `[0-9B-DF-HJ-NP-TV-Z]{6}`,
		Check:       sedolCheckDigit,
	}

	// CUSIP is the North American identifier: three digit issuer prefix,
	// five alphanumerics and a modulus 10 double-add-double check digit.
	CUSIP = &Checksum{
		Name:        "CUSIP",
		BodyPattern: `[0-9]{3}[0-9A-Z]{5}`,
		Check:       cusipCheckDigit,
	}
)

var standards = map[string]*Checksum{
	ISIN.Name:  ISIN,
	SEDOL.Name: SEDOL,
	CUSIP.Name: CUSIP,
}

// LookupStandard returns the checksum family registered under name.
func LookupStandard(name string) (*Checksum, bool) {
	c, ok := standards[name]
	return c, ok
}

// ChecksumGenerator generates body strings followed by their check
// character. Filters are full-string languages picked up by intersection;
// every emitted code satisfies all of them.
type ChecksumGenerator struct {
	family  *Checksum
	body    Generator
	filters []*RegexGenerator
}

// NewChecksumGenerator builds the generator of every valid code of family.
func NewChecksumGenerator(family *Checksum) (Generator, error) {
	body, err := NewRegexGenerator(family.BodyPattern, true)
	if err != nil {
		return nil, fmt.Errorf("%s body: %w", family.Name, err)
	}
	if IsEmpty(body) {
		return NoStrings{}, nil
	}
	return &ChecksumGenerator{family: family, body: body}, nil
}

// Family returns the checksum family.
func (g *ChecksumGenerator) Family() *Checksum { return g.family }

func (g *ChecksumGenerator) Matches(s string) bool {
	last, size := utf8.DecodeLastRuneInString(s)
	if size == 0 {
		return false
	}
	body := s[:len(s)-size]
	if !g.body.Matches(body) {
		return false
	}
	want, ok := g.family.Check(body)
	if !ok || want != last {
		return false
	}
	for _, f := range g.filters {
		if !f.Matches(s) {
			return false
		}
	}
	return true
}

func (g *ChecksumGenerator) Generate() iter.Seq[string] {
	return func(yield func(string) bool) {
		for body := range g.body.Generate() {
			code, ok := g.code(body)
			if !ok {
				continue
			}
			if !yield(code) {
				return
			}
		}
	}
}

// code completes body with its check character, if the scheme can weigh
// body and the finished code passes every filter.
func (g *ChecksumGenerator) code(body string) (string, bool) {
	check, ok := g.family.Check(body)
	if !ok {
		return "", false
	}
	code := body + string(check)
	for _, f := range g.filters {
		if !f.Matches(code) {
			return "", false
		}
	}
	return code, true
}

// settleBudget bounds how many bodies settle examines.
const settleBudget = 1 << 12

// settle returns NoStrings when the filters reject the check digit of every
// body. A non-empty body only proves the body language non-empty, so the
// bodies are tried in order; after settleBudget of them without a decision
// g is kept as is.
func (g *ChecksumGenerator) settle() Generator {
	if len(g.filters) == 0 {
		return g
	}
	n := 0
	for body := range g.body.Generate() {
		if _, ok := g.code(body); ok {
			return g
		}
		if n++; n >= settleBudget {
			return g
		}
	}
	return NoStrings{}
}

func (g *ChecksumGenerator) IsFinite() bool { return g.body.IsFinite() }

func (g *ChecksumGenerator) String() string {
	parts := []string{g.family.Name + " code"}
	for _, f := range g.filters {
		parts = append(parts, f.String())
	}
	return describe(parts)
}

// Intersect narrows the body. A plain language L constrains the whole code,
// so the body is intersected with the strings L accepts after one more
// check digit, and L is kept as a filter on the finished code.
func (g *ChecksumGenerator) Intersect(other Generator) (Generator, error) {
	switch o := other.(type) {
	case NoStrings:
		return NoStrings{}, nil

	case *RegexGenerator:
		body, err := g.body.Intersect(o.WithoutLastRune(checkLo, checkHi))
		if err != nil {
			return nil, err
		}
		if IsEmpty(body) {
			return NoStrings{}, nil
		}
		filters := append(append([]*RegexGenerator(nil), g.filters...), o)
		return (&ChecksumGenerator{family: g.family, body: body, filters: filters}).settle(), nil

	case *ChecksumGenerator:
		if o.family.Name != g.family.Name {
			return nil, &UnsupportedError{Left: g.String(), Right: o.String()}
		}
		body, err := g.body.Intersect(o.body)
		if err != nil {
			return nil, err
		}
		if IsEmpty(body) {
			return NoStrings{}, nil
		}
		filters := append(append([]*RegexGenerator(nil), g.filters...), o.filters...)
		return (&ChecksumGenerator{family: g.family, body: body, filters: filters}).settle(), nil

	default:
		return nil, &UnsupportedError{Left: g.String(), Right: other.String()}
	}
}

func alnumValue(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= 'A' && r <= 'Z':
		return int(r-'A') + 10, true
	default:
		return 0, false
	}
}

func checkRune(sum int) rune {
	return rune('0' + (10-sum%10)%10)
}

// isinCheckDigit expands letters to two digits (A=10 .. Z=35) and applies
// Luhn, doubling every second digit from the right starting with the last.
func isinCheckDigit(body string) (rune, bool) {
	var digits []int
	for _, r := range body {
		v, ok := alnumValue(r)
		if !ok {
			return 0, false
		}
		if v >= 10 {
			digits = append(digits, v/10, v%10)
		} else {
			digits = append(digits, v)
		}
	}
	sum := 0
	for p := 0; p < len(digits); p++ {
		d := digits[len(digits)-1-p]
		if p%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return checkRune(sum), true
}

var sedolWeights = [6]int{1, 3, 1, 7, 3, 9}

func sedolCheckDigit(body string) (rune, bool) {
	if utf8.RuneCountInString(body) != len(sedolWeights) {
		return 0, false
	}
	sum := 0
	i := 0
	for _, r := range body {
		v, ok := alnumValue(r)
		if !ok {
			return 0, false
		}
		sum += v * sedolWeights[i]
		i++
	}
	return checkRune(sum), true
}

func cusipCheckDigit(body string) (rune, bool) {
	if utf8.RuneCountInString(body) != 8 {
		return 0, false
	}
	sum := 0
	i := 0
	for _, r := range body {
		v, ok := alnumValue(r)
		if !ok {
			switch r {
			case '*':
				v = 36
			case '@':
				v = 37
			case '#':
				v = 38
			default:
				return 0, false
			}
		}
		if i%2 == 1 {
			v *= 2
		}
		sum += v/10 + v%10
		i++
	}
	return checkRune(sum), true
}
