package restrictions

import (
	"iter"

	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/stringgen"
)

type domainKind int

const (
	domainNone domainKind = iota
	domainAny
	domainNumbers
	domainTimes
	domainStrings
)

// domain is the non-null part of a FieldSpec.
type domain struct {
	kind    domainKind
	numeric *NumericRestriction
	times   *DateTimeRestriction
	strings stringgen.Generator

	// allowed is the filtered whitelist; nil means none.
	allowed []ir.IRValue
	banned  map[string]bool
}

func buildDomain(m map[Kind]Restriction) (*domain, error) {
	typ, _ := m[KindType].(*TypeRestriction)
	num, _ := m[KindNumeric].(*NumericRestriction)
	dt, _ := m[KindDateTime].(*DateTimeRestriction)
	str, _ := m[KindString].(stringRestriction)
	set, _ := m[KindSet].(*SetRestriction)

	d := &domain{}
	if set != nil {
		d.banned = keySet(set.Disallowed)
	}

	wantNumbers := num != nil || (typ != nil && typ.Type == TypeNumeric)
	wantStrings := str != nil || (typ != nil && typ.Type == TypeString)
	wantTimes := dt != nil || (typ != nil && typ.Type == TypeDateTime)

	switch {
	case countTrue(wantNumbers, wantStrings, wantTimes) > 1:
		d.kind = domainNone
		return d, nil

	case wantNumbers:
		d.kind = domainNumbers
		d.numeric = num
		if d.numeric == nil {
			d.numeric = &NumericRestriction{}
		}
		if typ != nil && typ.Integral {
			merged, ok := d.numeric.Intersect(GranularTo(0)).Get()
			if !ok {
				d.kind = domainNone
				return d, nil
			}
			d.numeric = merged
		}

	case wantTimes:
		d.kind = domainTimes
		d.times = dt
		if d.times == nil {
			d.times = &DateTimeRestriction{}
		}
		if typ != nil && typ.Granularity != "" {
			merged, ok := d.times.Intersect(GranularToUnit(typ.Granularity)).Get()
			if !ok {
				d.kind = domainNone
				return d, nil
			}
			d.times = merged
		}

	case wantStrings:
		d.kind = domainStrings
		gen, ok, err := effectiveStrings(typ, str)
		if err != nil {
			return nil, err
		}
		if !ok {
			d.kind = domainNone
			return d, nil
		}
		d.strings = gen

	default:
		d.kind = domainAny
		d.strings = stringgen.AnyString()
	}

	var whitelist []ir.IRValue
	if typ != nil && typ.Names != nil {
		whitelist = make([]ir.IRValue, len(typ.Names))
		for i, n := range typ.Names {
			whitelist[i] = ir.NewIRString(n)
		}
	}
	if set != nil && set.Allowed != nil {
		if whitelist == nil {
			whitelist = set.Allowed
		} else {
			names := keySet(whitelist)
			whitelist = nil
			for _, v := range set.Allowed {
				if names[ir.Key(v)] {
					whitelist = append(whitelist, v)
				}
			}
		}
	}
	if whitelist != nil {
		d.allowed = []ir.IRValue{}
		for _, v := range whitelist {
			if d.accepts(v) {
				d.allowed = append(d.allowed, v)
			}
		}
	}
	return d, nil
}

func countTrue(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

// effectiveStrings combines the declared code family with any explicit
// string restriction.
func effectiveStrings(typ *TypeRestriction, str stringRestriction) (stringgen.Generator, bool, error) {
	var combined Restriction
	if str != nil {
		combined = str
	}
	if typ != nil && typ.Standard != nil {
		std, err := newStandard(typ.Standard, nil)
		if err != nil {
			return nil, false, err
		}
		base, ok := std.Get()
		if !ok {
			return nil, false, nil
		}
		if combined == nil {
			combined = base
		} else {
			merged, err := Intersect(base, combined)
			if err != nil {
				return nil, false, err
			}
			v, ok := merged.Get()
			if !ok {
				return nil, false, nil
			}
			combined = v
		}
	}
	if combined == nil {
		return stringgen.AnyString(), true, nil
	}
	gen := combined.(stringRestriction).Generator()
	if stringgen.IsEmpty(gen) {
		return nil, false, nil
	}
	return gen, true, nil
}

// accepts checks v against the type, range and language, ignoring lists.
func (d *domain) accepts(v ir.IRValue) bool {
	if ir.IsNull(v) || d.banned[ir.Key(v)] {
		return false
	}
	switch d.kind {
	case domainNumbers:
		return d.numeric.containsValue(v)
	case domainTimes:
		return d.times.containsValue(v)
	case domainStrings:
		s, ok := v.(ir.IRString)
		return ok && d.strings.Matches(string(s))
	case domainAny:
		return true
	default:
		return false
	}
}

func (d *domain) permits(v ir.IRValue) bool {
	if !d.accepts(v) {
		return false
	}
	if d.allowed == nil {
		return true
	}
	k := ir.Key(v)
	for _, a := range d.allowed {
		if ir.Key(a) == k {
			return true
		}
	}
	return false
}

func (d *domain) values() iter.Seq[ir.IRValue] {
	return func(yield func(ir.IRValue) bool) {
		switch {
		case d.kind == domainNone:
			return
		case d.allowed != nil:
			for _, v := range d.allowed {
				if !yield(v) {
					return
				}
			}
		case d.kind == domainNumbers:
			for n := range d.numeric.Values() {
				v := ir.NewIRNumber(n)
				if d.banned[ir.Key(v)] {
					continue
				}
				if !yield(v) {
					return
				}
			}
		case d.kind == domainTimes:
			for t := range d.times.Values() {
				v := ir.NewIRDateTime(t)
				if d.banned[ir.Key(v)] {
					continue
				}
				if !yield(v) {
					return
				}
			}
		default:
			for s := range d.strings.Generate() {
				v := ir.NewIRString(s)
				if d.banned[ir.Key(v)] {
					continue
				}
				if !yield(v) {
					return
				}
			}
		}
	}
}

// isEmpty reports whether the domain has no values. The blacklist is
// finite, so pulling one more candidate than it holds settles the question.
func (d *domain) isEmpty() bool {
	if d.kind == domainNone {
		return true
	}
	if d.allowed != nil {
		return len(d.allowed) == 0
	}
	for range d.values() {
		return false
	}
	return true
}
