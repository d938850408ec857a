package stringgen

import (
	"fmt"
	"iter"
	"strings"
)

// Generator produces and recognises the strings of a regular language.
//
// Generate is deterministic: strings come out shortest first, and strings of
// equal length in symbol order (printable ASCII ascending, then one
// representative rune for each interval that contains no printable ASCII).
// The sequence is finite iff the language is finite.
type Generator interface {
	Matches(s string) bool
	Generate() iter.Seq[string]
	Intersect(other Generator) (Generator, error)
	IsFinite() bool
	String() string
}

// NoStrings is the generator of the empty language.
type NoStrings struct{}

func (NoStrings) Matches(string) bool { return false }

func (NoStrings) Generate() iter.Seq[string] {
	return func(func(string) bool) {}
}

func (NoStrings) Intersect(Generator) (Generator, error) { return NoStrings{}, nil }

func (NoStrings) IsFinite() bool { return true }

func (NoStrings) String() string { return "<no strings>" }

// IsEmpty reports whether g generates nothing.
func IsEmpty(g Generator) bool {
	_, ok := g.(NoStrings)
	return ok
}

// RegexGenerator is a Generator backed by a trimmed DFA. Everything derived
// from the automaton (enumeration symbols, finiteness) is computed once at
// construction.
type RegexGenerator struct {
	automaton   *dfa
	symbols     [][]symbol
	finite      bool
	description string
}

// symbol is one enumeration step out of a state.
type symbol struct {
	r  rune
	to int
}

// NewRegexGenerator compiles pattern. When matchFullString is false the
// pattern only has to occur somewhere in the string. An empty language
// yields NoStrings.
func NewRegexGenerator(pattern string, matchFullString bool) (Generator, error) {
	source := pattern
	desc := fmt.Sprintf("matching /%s/", pattern)
	if !matchFullString {
		source = `(?s:.*)(?:` + pattern + `)(?s:.*)`
		desc = fmt.Sprintf("containing /%s/", pattern)
	}
	d, err := compilePattern(source)
	if err != nil {
		return nil, err
	}
	return fromDFA(d, desc), nil
}

// NewLengthGenerator accepts any string whose rune count lies in
// [minLen, maxLen]. A negative maxLen leaves the length unbounded.
func NewLengthGenerator(minLen, maxLen int) Generator {
	desc := fmt.Sprintf("length >= %d", minLen)
	if maxLen >= 0 {
		desc = fmt.Sprintf("length %d..%d", minLen, maxLen)
	}
	return fromDFA(lengthAutomaton(minLen, maxLen), desc)
}

// AnyString accepts every string.
func AnyString() Generator {
	return NewLengthGenerator(0, -1)
}

func fromDFA(d *dfa, desc string) Generator {
	t := trim(d)
	if t.isEmpty() {
		return NoStrings{}
	}
	g := &RegexGenerator{
		automaton:   t,
		finite:      !t.hasCycle(),
		description: desc,
	}
	g.symbols = make([][]symbol, t.numStates())
	for s := range t.trans {
		g.symbols[s] = symbolsOf(t.trans[s])
	}
	return g
}

const (
	printableLo = 0x20
	printableHi = 0x7e
)

// symbolsOf lists printable ASCII runes first, then the low end of every
// interval holding no printable ASCII at all.
func symbolsOf(ts []transition) []symbol {
	var printable, other []symbol
	for _, t := range ts {
		lo, hi := max(t.lo, printableLo), min(t.hi, printableHi)
		if lo > hi {
			other = append(other, symbol{r: t.lo, to: t.to})
			continue
		}
		for r := lo; r <= hi; r++ {
			printable = append(printable, symbol{r: r, to: t.to})
		}
	}
	return append(printable, other...)
}

func (g *RegexGenerator) Matches(s string) bool {
	return g.automaton.matches(s)
}

func (g *RegexGenerator) IsFinite() bool { return g.finite }

func (g *RegexGenerator) String() string { return g.description }

// Complement returns the generator of every string g rejects.
func (g *RegexGenerator) Complement() Generator {
	return fromDFA(complement(g.automaton), "not "+g.description)
}

// WithoutLastRune accepts w whenever g accepts w followed by one rune in
// [lo, hi].
func (g *RegexGenerator) WithoutLastRune(lo, hi rune) Generator {
	return fromDFA(quotientLastRune(g.automaton, lo, hi), g.description+" minus last rune")
}

func (g *RegexGenerator) Intersect(other Generator) (Generator, error) {
	switch o := other.(type) {
	case NoStrings:
		return NoStrings{}, nil
	case *RegexGenerator:
		return fromDFA(intersect(g.automaton, o.automaton), joinDescriptions(g.description, o.description)), nil
	case *ChecksumGenerator:
		return o.Intersect(g)
	default:
		return nil, &UnsupportedError{Left: g.String(), Right: other.String()}
	}
}

func joinDescriptions(a, b string) string {
	if a == b {
		return a
	}
	return a + " and " + b
}

// Generate enumerates the language in shortlex order.
func (g *RegexGenerator) Generate() iter.Seq[string] {
	return func(yield func(string) bool) {
		d := g.automaton
		// reach[n][s]: state s reaches acceptance in exactly n steps.
		reach := [][]bool{d.accept}
		limit := -1
		if g.finite {
			// the longest accepted path of an acyclic trimmed DFA visits each state once
			limit = d.numStates()
		}
		buf := make([]rune, 0, 16)
		for n := 0; limit < 0 || n < limit; n++ {
			for len(reach) <= n {
				reach = append(reach, g.stepBack(reach[len(reach)-1]))
			}
			if !reach[n][d.start] {
				continue
			}
			if !g.walk(d.start, n, reach, buf, yield) {
				return
			}
		}
	}
}

func (g *RegexGenerator) stepBack(next []bool) []bool {
	prev := make([]bool, len(next))
	for s, ts := range g.automaton.trans {
		for _, t := range ts {
			if next[t.to] {
				prev[s] = true
				break
			}
		}
	}
	return prev
}

func (g *RegexGenerator) walk(state, remaining int, reach [][]bool, buf []rune, yield func(string) bool) bool {
	if remaining == 0 {
		return yield(string(buf))
	}
	for _, sym := range g.symbols[state] {
		if !reach[remaining-1][sym.to] {
			continue
		}
		if !g.walk(sym.to, remaining-1, reach, append(buf, sym.r), yield) {
			return false
		}
	}
	return true
}

// UnsupportedError reports two generators that cannot be intersected
// without dropping a constraint.
type UnsupportedError struct {
	Left  string
	Right string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("cannot intersect string generators %s and %s", e.Left, e.Right)
}

// describe renders a list of generator descriptions for composite types.
func describe(parts []string) string {
	return strings.Join(parts, " and ")
}
