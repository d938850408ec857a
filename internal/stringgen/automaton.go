package stringgen

import (
	"fmt"
	"regexp/syntax"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

const maxRune = unicode.MaxRune

// transition is a DFA edge over the closed rune interval [lo, hi].
type transition struct {
	lo, hi rune
	to     int
}

// dfa is a deterministic automaton over rune intervals.
//
// INVARIANTS:
//   - trans[s] is sorted by lo and its intervals never overlap
//   - a missing interval means rejection (no implicit dead state)
type dfa struct {
	trans  [][]transition
	accept []bool
	start  int
}

func (d *dfa) numStates() int { return len(d.trans) }

// step returns the successor of state on r, or -1.
func (d *dfa) step(state int, r rune) int {
	ts := d.trans[state]
	i, found := slices.BinarySearchFunc(ts, r, func(t transition, r rune) int {
		switch {
		case t.hi < r:
			return -1
		case t.lo > r:
			return 1
		default:
			return 0
		}
	})
	if !found {
		return -1
	}
	return ts[i].to
}

func (d *dfa) matches(s string) bool {
	state := d.start
	for _, r := range s {
		state = d.step(state, r)
		if state < 0 {
			return false
		}
	}
	return d.accept[state]
}

// ---------------------------------------------------------------------------
// Thompson construction

type nfaEdge struct {
	lo, hi rune
	to     int
}

type nfaState struct {
	eps   []int
	edges []nfaEdge
}

type nfa struct {
	states []nfaState
}

type frag struct{ start, end int }

func (n *nfa) newState() int {
	n.states = append(n.states, nfaState{})
	return len(n.states) - 1
}

func (n *nfa) epsilon(from, to int) {
	n.states[from].eps = append(n.states[from].eps, to)
}

func (n *nfa) edge(from int, lo, hi rune, to int) {
	n.states[from].edges = append(n.states[from].edges, nfaEdge{lo: lo, hi: hi, to: to})
}

// build appends the fragment for re. Anchors are treated as empty matches
// because every pattern is evaluated against the whole candidate string.
func (n *nfa) build(re *syntax.Regexp) (frag, error) {
	switch re.Op {
	case syntax.OpNoMatch:
		return frag{n.newState(), n.newState()}, nil

	case syntax.OpEmptyMatch, syntax.OpBeginLine, syntax.OpEndLine, syntax.OpBeginText, syntax.OpEndText:
		f := frag{n.newState(), n.newState()}
		n.epsilon(f.start, f.end)
		return f, nil

	case syntax.OpLiteral:
		start := n.newState()
		cur := start
		for _, r := range re.Rune {
			next := n.newState()
			for _, v := range foldVariants(r, re.Flags&syntax.FoldCase != 0) {
				n.edge(cur, v, v, next)
			}
			cur = next
		}
		return frag{start, cur}, nil

	case syntax.OpCharClass:
		f := frag{n.newState(), n.newState()}
		for i := 0; i+1 < len(re.Rune); i += 2 {
			n.edge(f.start, re.Rune[i], re.Rune[i+1], f.end)
		}
		return f, nil

	case syntax.OpAnyCharNotNL:
		f := frag{n.newState(), n.newState()}
		n.edge(f.start, 0, '\n'-1, f.end)
		n.edge(f.start, '\n'+1, maxRune, f.end)
		return f, nil

	case syntax.OpAnyChar:
		f := frag{n.newState(), n.newState()}
		n.edge(f.start, 0, maxRune, f.end)
		return f, nil

	case syntax.OpCapture:
		return n.build(re.Sub[0])

	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest:
		sub, err := n.build(re.Sub[0])
		if err != nil {
			return frag{}, err
		}
		f := frag{n.newState(), n.newState()}
		n.epsilon(f.start, sub.start)
		n.epsilon(sub.end, f.end)
		if re.Op != syntax.OpPlus {
			n.epsilon(f.start, f.end)
		}
		if re.Op != syntax.OpQuest {
			n.epsilon(sub.end, sub.start)
		}
		return f, nil

	case syntax.OpRepeat:
		return n.buildRepeat(re)

	case syntax.OpConcat:
		f := frag{n.newState(), -1}
		cur := f.start
		for _, sub := range re.Sub {
			sf, err := n.build(sub)
			if err != nil {
				return frag{}, err
			}
			n.epsilon(cur, sf.start)
			cur = sf.end
		}
		f.end = cur
		return f, nil

	case syntax.OpAlternate:
		f := frag{n.newState(), n.newState()}
		for _, sub := range re.Sub {
			sf, err := n.build(sub)
			if err != nil {
				return frag{}, err
			}
			n.epsilon(f.start, sf.start)
			n.epsilon(sf.end, f.end)
		}
		return f, nil

	default:
		return frag{}, fmt.Errorf("unsupported regex construct %q", re.String())
	}
}

func (n *nfa) buildRepeat(re *syntax.Regexp) (frag, error) {
	f := frag{n.newState(), -1}
	cur := f.start
	for i := 0; i < re.Min; i++ {
		sf, err := n.build(re.Sub[0])
		if err != nil {
			return frag{}, err
		}
		n.epsilon(cur, sf.start)
		cur = sf.end
	}
	if re.Max < 0 {
		star := &syntax.Regexp{Op: syntax.OpStar, Sub: []*syntax.Regexp{re.Sub[0]}}
		sf, err := n.build(star)
		if err != nil {
			return frag{}, err
		}
		n.epsilon(cur, sf.start)
		cur = sf.end
	} else {
		end := n.newState()
		for i := re.Min; i < re.Max; i++ {
			n.epsilon(cur, end)
			sf, err := n.build(re.Sub[0])
			if err != nil {
				return frag{}, err
			}
			n.epsilon(cur, sf.start)
			cur = sf.end
		}
		n.epsilon(cur, end)
		cur = end
	}
	f.end = cur
	return f, nil
}

func foldVariants(r rune, fold bool) []rune {
	out := []rune{r}
	if !fold {
		return out
	}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		out = append(out, f)
	}
	return out
}

// compilePattern parses an RE2 pattern and determinizes it.
func compilePattern(pattern string) (*dfa, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	re = re.Simplify()

	n := &nfa{}
	f, err := n.build(re)
	if err != nil {
		return nil, fmt.Errorf("regex %q: %w", pattern, err)
	}
	return n.determinize(f.start, f.end), nil
}

func (n *nfa) closure(seed []int) []int {
	seen := make(map[int]bool, len(seed))
	stack := append([]int(nil), seed...)
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[s] {
			continue
		}
		seen[s] = true
		stack = append(stack, n.states[s].eps...)
	}
	out := make([]int, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

func setKey(set []int) string {
	var b strings.Builder
	for i, s := range set {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(s))
	}
	return b.String()
}

// determinize runs the subset construction over rune intervals.
func (n *nfa) determinize(start, accept int) *dfa {
	d := &dfa{}
	ids := map[string]int{}
	var sets [][]int

	intern := func(set []int) int {
		k := setKey(set)
		if id, ok := ids[k]; ok {
			return id
		}
		id := len(sets)
		ids[k] = id
		sets = append(sets, set)
		d.trans = append(d.trans, nil)
		d.accept = append(d.accept, slices.Contains(set, accept))
		return id
	}

	d.start = intern(n.closure([]int{start}))
	for id := 0; id < len(sets); id++ {
		var edges []nfaEdge
		for _, s := range sets[id] {
			edges = append(edges, n.states[s].edges...)
		}
		if len(edges) == 0 {
			continue
		}

		points := make([]rune, 0, 2*len(edges))
		for _, e := range edges {
			points = append(points, e.lo, e.hi+1)
		}
		slices.Sort(points)
		points = slices.Compact(points)

		var out []transition
		for i := 0; i+1 < len(points); i++ {
			lo, hi := points[i], points[i+1]-1
			var targets []int
			for _, e := range edges {
				if e.lo <= lo && e.hi >= lo {
					targets = append(targets, e.to)
				}
			}
			if len(targets) == 0 {
				continue
			}
			to := intern(n.closure(targets))
			out = appendTransition(out, transition{lo: lo, hi: hi, to: to})
		}
		d.trans[id] = out
	}
	return d
}

// appendTransition appends t, coalescing it with the previous interval when
// both are adjacent and share a target.
func appendTransition(ts []transition, t transition) []transition {
	if n := len(ts); n > 0 && ts[n-1].to == t.to && ts[n-1].hi+1 == t.lo {
		ts[n-1].hi = t.hi
		return ts
	}
	return append(ts, t)
}

// ---------------------------------------------------------------------------
// Automaton algebra

// intersect builds the reachable product automaton.
func intersect(a, b *dfa) *dfa {
	d := &dfa{}
	ids := map[[2]int]int{}
	var pairs [][2]int

	intern := func(p [2]int) int {
		if id, ok := ids[p]; ok {
			return id
		}
		id := len(pairs)
		ids[p] = id
		pairs = append(pairs, p)
		d.trans = append(d.trans, nil)
		d.accept = append(d.accept, a.accept[p[0]] && b.accept[p[1]])
		return id
	}

	d.start = intern([2]int{a.start, b.start})
	for id := 0; id < len(pairs); id++ {
		ta, tb := a.trans[pairs[id][0]], b.trans[pairs[id][1]]
		var out []transition
		i, j := 0, 0
		for i < len(ta) && j < len(tb) {
			lo := max(ta[i].lo, tb[j].lo)
			hi := min(ta[i].hi, tb[j].hi)
			if lo <= hi {
				to := intern([2]int{ta[i].to, tb[j].to})
				out = appendTransition(out, transition{lo: lo, hi: hi, to: to})
			}
			if ta[i].hi < tb[j].hi {
				i++
			} else {
				j++
			}
		}
		d.trans[id] = out
	}
	return d
}

// complement accepts exactly the strings d rejects.
func complement(d *dfa) *dfa {
	n := d.numStates()
	dead := n
	out := &dfa{
		trans:  make([][]transition, n+1),
		accept: make([]bool, n+1),
		start:  d.start,
	}
	for s := 0; s < n; s++ {
		var ts []transition
		next := rune(0)
		for _, t := range d.trans[s] {
			if t.lo > next {
				ts = appendTransition(ts, transition{lo: next, hi: t.lo - 1, to: dead})
			}
			ts = appendTransition(ts, t)
			next = t.hi + 1
		}
		if next <= maxRune {
			ts = appendTransition(ts, transition{lo: next, hi: maxRune, to: dead})
		}
		out.trans[s] = ts
		out.accept[s] = !d.accept[s]
	}
	out.trans[dead] = []transition{{lo: 0, hi: maxRune, to: dead}}
	out.accept[dead] = true
	return out
}

// lengthAutomaton accepts every string whose rune count lies in
// [minLen, maxLen]; maxLen < 0 means unbounded.
func lengthAutomaton(minLen, maxLen int) *dfa {
	if maxLen >= 0 && maxLen < minLen {
		return emptyDFA()
	}
	top := minLen
	if maxLen >= 0 {
		top = maxLen
	}
	d := &dfa{
		trans:  make([][]transition, top+1),
		accept: make([]bool, top+1),
	}
	for i := 0; i <= top; i++ {
		d.accept[i] = i >= minLen
		if i < top {
			d.trans[i] = []transition{{lo: 0, hi: maxRune, to: i + 1}}
		}
	}
	if maxLen < 0 {
		d.trans[top] = []transition{{lo: 0, hi: maxRune, to: top}}
	}
	return d
}

// quotientLastRune accepts w whenever d accepts w followed by some rune in
// [lo, hi].
func quotientLastRune(d *dfa, lo, hi rune) *dfa {
	out := &dfa{
		trans:  d.trans,
		accept: make([]bool, d.numStates()),
		start:  d.start,
	}
	for s, ts := range d.trans {
		for _, t := range ts {
			if t.lo <= hi && t.hi >= lo && d.accept[t.to] {
				out.accept[s] = true
				break
			}
		}
	}
	return out
}

func emptyDFA() *dfa {
	return &dfa{trans: [][]transition{nil}, accept: []bool{false}}
}

// trim removes unreachable and dead states. The result has no transition
// into a state that cannot reach acceptance; an empty language trims to a
// single rejecting state.
func trim(d *dfa) *dfa {
	n := d.numStates()
	reachable := make([]bool, n)
	stack := []int{d.start}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[s] {
			continue
		}
		reachable[s] = true
		for _, t := range d.trans[s] {
			stack = append(stack, t.to)
		}
	}

	reverse := make([][]int, n)
	for s := 0; s < n; s++ {
		for _, t := range d.trans[s] {
			reverse[t.to] = append(reverse[t.to], s)
		}
	}
	live := make([]bool, n)
	for s := 0; s < n; s++ {
		if d.accept[s] && reachable[s] {
			stack = append(stack, s)
		}
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if live[s] {
			continue
		}
		live[s] = true
		for _, p := range reverse[s] {
			if reachable[p] {
				stack = append(stack, p)
			}
		}
	}

	if !live[d.start] {
		return emptyDFA()
	}

	renumber := make([]int, n)
	out := &dfa{}
	for s := 0; s < n; s++ {
		renumber[s] = -1
		if live[s] {
			renumber[s] = len(out.trans)
			out.trans = append(out.trans, nil)
			out.accept = append(out.accept, d.accept[s])
		}
	}
	for s := 0; s < n; s++ {
		if !live[s] {
			continue
		}
		var ts []transition
		for _, t := range d.trans[s] {
			if live[t.to] {
				ts = appendTransition(ts, transition{lo: t.lo, hi: t.hi, to: renumber[t.to]})
			}
		}
		out.trans[renumber[s]] = ts
	}
	out.start = renumber[d.start]
	return out
}

// isEmpty reports whether a trimmed automaton accepts nothing.
func (d *dfa) isEmpty() bool {
	return !d.accept[d.start] && len(d.trans[d.start]) == 0
}

// hasCycle reports whether a trimmed automaton accepts infinitely many strings.
func (d *dfa) hasCycle() bool {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, d.numStates())
	var visit func(s int) bool
	visit = func(s int) bool {
		color[s] = grey
		for _, t := range d.trans[s] {
			switch color[t.to] {
			case grey:
				return true
			case white:
				if visit(t.to) {
					return true
				}
			}
		}
		color[s] = black
		return false
	}
	return visit(d.start)
}
