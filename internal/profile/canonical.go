package profile

import "github.com/roach88/datagen/internal/ir"

// Canonical renders the profile as canonical JSON. Constraints are rendered
// through their String form, which is unambiguous for a compiled profile.
func (p *Profile) Canonical() ([]byte, error) {
	fields := make([]any, len(p.Fields))
	for i, f := range p.Fields {
		fields[i] = map[string]any{
			"name":     f.Name,
			"type":     string(f.Type),
			"nullable": f.Nullable,
			"unique":   f.Unique,
		}
	}
	rules := make([]any, len(p.Rules))
	for i, r := range p.Rules {
		cs := make([]any, len(r.Constraints))
		for j, c := range r.Constraints {
			cs[j] = c.String()
		}
		rules[i] = map[string]any{
			"name":        r.Name,
			"constraints": cs,
		}
	}
	return ir.MarshalCanonical(map[string]any{
		"name":   p.Name,
		"fields": fields,
		"rules":  rules,
	})
}

// Hash is the content-addressed identity of the profile.
func (p *Profile) Hash() (string, error) {
	canonical, err := p.Canonical()
	if err != nil {
		return "", err
	}
	return ir.ProfileHash(canonical), nil
}
