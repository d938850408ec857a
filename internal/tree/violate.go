package tree

import (
	"slices"

	"github.com/roach88/datagen/internal/profile"
	"github.com/roach88/datagen/internal/refdata"
)

// Violation is a copy of a profile in which exactly one rule is negated.
type Violation struct {
	Rule    string
	Profile *profile.Profile
}

// Violate returns one Violation per rule, in rule order. Rows generated
// from a violation satisfy every other rule and break the negated one.
func Violate(p *profile.Profile) []Violation {
	out := make([]Violation, 0, len(p.Rules))
	for i, rule := range p.Rules {
		rules := slices.Clone(p.Rules)
		rules[i] = profile.Rule{
			Name:        "not " + rule.Name,
			Constraints: []profile.Constraint{profile.Not{Inner: profile.AllOf(rule.Constraints)}},
		}
		out = append(out, Violation{Rule: rule.Name, Profile: p.WithRules(rules)})
	}
	return out
}

// BuildViolating builds one tree per rule of p with that rule negated. Each
// tree records the violated rule.
func BuildViolating(p *profile.Profile, names refdata.Provider) ([]*DecisionTree, error) {
	var trees []*DecisionTree
	for _, v := range Violate(p) {
		t, err := Build(v.Profile, names)
		if err != nil {
			return nil, err
		}
		t.Violated = v.Rule
		trees = append(trees, t)
	}
	return trees, nil
}
