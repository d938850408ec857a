package restrictions

import (
	"strings"

	"github.com/roach88/datagen/internal/ir"
)

// SetRestriction is a whitelist and a blacklist of concrete values.
// A nil Allowed means no whitelist. Allowed keeps declaration order, which
// is the order values are generated in.
type SetRestriction struct {
	Allowed    []ir.IRValue
	Disallowed []ir.IRValue
}

func (*SetRestriction) restriction() {}

func (*SetRestriction) Kind() Kind { return KindSet }

// InSet allows only the given values.
func InSet(values ...ir.IRValue) *SetRestriction {
	return &SetRestriction{Allowed: dedupe(values)}
}

// NotInSet forbids the given values.
func NotInSet(values ...ir.IRValue) *SetRestriction {
	return &SetRestriction{Disallowed: dedupe(values)}
}

func dedupe(values []ir.IRValue) []ir.IRValue {
	seen := make(map[string]bool, len(values))
	out := make([]ir.IRValue, 0, len(values))
	for _, v := range values {
		k := ir.Key(v)
		if !seen[k] {
			seen[k] = true
			out = append(out, v)
		}
	}
	return out
}

func keySet(values []ir.IRValue) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[ir.Key(v)] = true
	}
	return out
}

// Intersect keeps the common whitelist (in the receiver's order) and the
// union of both blacklists.
func (r *SetRestriction) Intersect(other *SetRestriction) MergeResult[*SetRestriction] {
	out := &SetRestriction{
		Disallowed: dedupe(append(append([]ir.IRValue(nil), r.Disallowed...), other.Disallowed...)),
	}
	switch {
	case r.Allowed == nil:
		out.Allowed = other.Allowed
	case other.Allowed == nil:
		out.Allowed = r.Allowed
	default:
		theirs := keySet(other.Allowed)
		out.Allowed = []ir.IRValue{}
		for _, v := range r.Allowed {
			if theirs[ir.Key(v)] {
				out.Allowed = append(out.Allowed, v)
			}
		}
	}
	if out.Allowed != nil && len(out.permitted()) == 0 {
		return Unsatisfiable[*SetRestriction]()
	}
	return Success(out)
}

// permitted returns the whitelist minus the blacklist.
func (r *SetRestriction) permitted() []ir.IRValue {
	banned := keySet(r.Disallowed)
	var out []ir.IRValue
	for _, v := range r.Allowed {
		if !banned[ir.Key(v)] {
			out = append(out, v)
		}
	}
	return out
}

// Contains reports whether v passes both lists.
func (r *SetRestriction) Contains(v ir.IRValue) bool {
	k := ir.Key(v)
	if keySet(r.Disallowed)[k] {
		return false
	}
	return r.Allowed == nil || keySet(r.Allowed)[k]
}

func (r *SetRestriction) equal(other *SetRestriction) bool {
	if (r.Allowed == nil) != (other.Allowed == nil) {
		return false
	}
	return sameKeys(r.Allowed, other.Allowed) && sameKeys(r.Disallowed, other.Disallowed)
}

func sameKeys(a, b []ir.IRValue) bool {
	x, y := keySet(a), keySet(b)
	if len(x) != len(y) {
		return false
	}
	for k := range x {
		if !y[k] {
			return false
		}
	}
	return true
}

func (r *SetRestriction) String() string {
	var parts []string
	if r.Allowed != nil {
		parts = append(parts, "in "+renderValues(r.Allowed))
	}
	if len(r.Disallowed) > 0 {
		parts = append(parts, "not in "+renderValues(r.Disallowed))
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, " ")
}

func renderValues(values []ir.IRValue) string {
	rendered := make([]string, len(values))
	for i, v := range values {
		if s, ok := v.(ir.IRString); ok {
			rendered[i] = `"` + string(s) + `"`
		} else {
			rendered[i] = v.String()
		}
	}
	return "{" + strings.Join(rendered, ", ") + "}"
}
