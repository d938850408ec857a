package compiler

import (
	"fmt"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/profile"
)

// CompileProfile parses a CUE value into a Profile.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the profile struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`profile: trades: { fields: { ... }, rules: { ... } }`)
//	p, err := CompileProfile(v.LookupPath(cue.ParsePath("profile.trades")))
//
// Fields keep their declaration order. A field is either a bare type name
// or a struct with type, nullable and unique. Each rule is a constraint or
// a list of constraints that must all hold.
func CompileProfile(v cue.Value) (*profile.Profile, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := &profile.Profile{}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		p.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{
			Field:   "fields",
			Message: "fields are required",
			Pos:     v.Pos(),
		}
	}
	var err error
	p.Fields, err = parseFields(fieldsVal)
	if err != nil {
		return nil, err
	}

	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if rulesVal.Exists() {
		p.Rules, err = parseRules(rulesVal)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// parseFields extracts field declarations in declaration order.
func parseFields(v cue.Value) ([]profile.FieldDecl, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var decls []profile.FieldDecl
	for iter.Next() {
		name := iter.Selector().Unquoted()
		decl, err := parseField(name, iter.Value())
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// parseField accepts `name: "integer"` or
// `name: {type: "integer", nullable: true, unique: true}`.
func parseField(name string, v cue.Value) (profile.FieldDecl, error) {
	decl := profile.FieldDecl{Name: name}
	path := "fields." + name

	if t, err := v.String(); err == nil {
		decl.Type = profile.FieldType(t)
		return decl, nil
	}

	keys, err := structKeys(v, path)
	if err != nil {
		return decl, err
	}
	for _, k := range keys {
		kv := v.LookupPath(cue.MakePath(cue.Str(k)))
		switch k {
		case "type":
			t, err := kv.String()
			if err != nil {
				return decl, &CompileError{Field: path + ".type", Message: "type must be a string", Pos: kv.Pos()}
			}
			decl.Type = profile.FieldType(t)
		case "nullable":
			if decl.Nullable, err = kv.Bool(); err != nil {
				return decl, &CompileError{Field: path + ".nullable", Message: "nullable must be a bool", Pos: kv.Pos()}
			}
		case "unique":
			if decl.Unique, err = kv.Bool(); err != nil {
				return decl, &CompileError{Field: path + ".unique", Message: "unique must be a bool", Pos: kv.Pos()}
			}
		default:
			return decl, &CompileError{Field: path, Message: fmt.Sprintf("unknown key %q", k), Pos: kv.Pos()}
		}
	}
	if decl.Type == "" {
		return decl, &CompileError{Field: path + ".type", Message: "type is required", Pos: v.Pos()}
	}
	return decl, nil
}

// parseRules extracts named rules. A rule is a single constraint or a list.
func parseRules(v cue.Value) ([]profile.Rule, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rules []profile.Rule
	for iter.Next() {
		name := iter.Selector().Unquoted()
		path := fmt.Sprintf("rules.%q", name)
		rv := iter.Value()

		rule := profile.Rule{Name: name}
		if rv.Kind() == cue.ListKind {
			rule.Constraints, err = parseConstraints(rv, path)
			if err != nil {
				return nil, err
			}
		} else {
			c, err := parseConstraint(rv, path)
			if err != nil {
				return nil, err
			}
			rule.Constraints = []profile.Constraint{c}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func parseConstraints(v cue.Value, path string) ([]profile.Constraint, error) {
	list, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: path, Message: "expected a list of constraints", Pos: v.Pos()}
	}
	var out []profile.Constraint
	for i := 0; list.Next(); i++ {
		c, err := parseConstraint(list.Value(), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// parseConstraint reads one constraint struct. Grammatical constraints use
// the keys allOf, anyOf, not and if/then/else. Anything else names a field
// and exactly one operator, plus an optional offset for field relations.
func parseConstraint(v cue.Value, path string) (profile.Constraint, error) {
	keys, err := structKeys(v, path)
	if err != nil {
		return nil, err
	}
	lookup := func(k string) cue.Value { return v.LookupPath(cue.MakePath(cue.Str(k))) }

	switch {
	case slices.Contains(keys, "allOf"), slices.Contains(keys, "anyOf"):
		if len(keys) != 1 {
			return nil, &CompileError{Field: path, Message: fmt.Sprintf("%s takes no sibling keys", keys[0]), Pos: v.Pos()}
		}
		cs, err := parseConstraints(lookup(keys[0]), path+"."+keys[0])
		if err != nil {
			return nil, err
		}
		if keys[0] == "allOf" {
			return profile.AllOf(cs), nil
		}
		return profile.AnyOf(cs), nil

	case slices.Contains(keys, "not"):
		if len(keys) != 1 {
			return nil, &CompileError{Field: path, Message: "not takes no sibling keys", Pos: v.Pos()}
		}
		inner, err := parseConstraint(lookup("not"), path+".not")
		if err != nil {
			return nil, err
		}
		return profile.Not{Inner: inner}, nil

	case slices.Contains(keys, "if"):
		return parseIf(v, keys, path)
	}

	fieldVal := lookup("field")
	field, err := fieldVal.String()
	if err != nil {
		return nil, &CompileError{Field: path + ".field", Message: "field name is required", Pos: v.Pos()}
	}

	var ops []string
	for _, k := range keys {
		if k != "field" && k != "offset" && k != "offsetUnit" {
			ops = append(ops, k)
		}
	}
	if len(ops) != 1 {
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("expected exactly one operator, got %d", len(ops)),
			Pos:     v.Pos(),
		}
	}
	keyword := ops[0]
	operand := lookup(keyword)
	opPath := path + "." + keyword

	if relOp, ok := profile.LookupRelOp(keyword); ok {
		return parseRelation(field, relOp, operand, lookup("offset"), lookup("offsetUnit"), opPath)
	}
	for _, k := range []string{"offset", "offsetUnit"} {
		if slices.Contains(keys, k) {
			return nil, &CompileError{Field: path + "." + k, Message: k + " only applies to field relations", Pos: v.Pos()}
		}
	}
	op, ok := profile.LookupOp(keyword)
	if !ok {
		return nil, &CompileError{Field: path, Message: fmt.Sprintf("unknown operator %q", keyword), Pos: operand.Pos()}
	}
	return parseAtomic(field, op, operand, opPath)
}

func parseIf(v cue.Value, keys []string, path string) (profile.Constraint, error) {
	var c profile.If
	for _, k := range keys {
		kv := v.LookupPath(cue.MakePath(cue.Str(k)))
		if k != "if" && k != "then" && k != "else" {
			return nil, &CompileError{Field: path, Message: fmt.Sprintf("unknown key %q in if constraint", k), Pos: kv.Pos()}
		}
		inner, err := parseConstraint(kv, path+"."+k)
		if err != nil {
			return nil, err
		}
		switch k {
		case "if":
			c.Cond = inner
		case "then":
			c.Then = inner
		case "else":
			c.Else = inner
		}
	}
	if c.Then == nil {
		return nil, &CompileError{Field: path + ".then", Message: "if requires then", Pos: v.Pos()}
	}
	return c, nil
}

func parseRelation(field string, op profile.RelOp, other, offset, unit cue.Value, path string) (profile.Constraint, error) {
	name, err := other.String()
	if err != nil {
		return nil, &CompileError{Field: path, Message: "expected a field name", Pos: other.Pos()}
	}
	rel := profile.Relation{Field: field, Op: op, Other: name}
	if offset.Exists() {
		n, err := number(offset, path+".offset")
		if err != nil {
			return nil, err
		}
		rel.Offset = n.Decimal()
	}
	if unit.Exists() {
		if !offset.Exists() {
			return nil, &CompileError{Field: path + ".offsetUnit", Message: "offsetUnit needs an offset", Pos: unit.Pos()}
		}
		u, err := unit.String()
		if err != nil {
			return nil, &CompileError{Field: path + ".offsetUnit", Message: "expected a time unit", Pos: unit.Pos()}
		}
		rel.OffsetUnit = ir.TimeUnit(u)
	}
	return rel, nil
}

func parseAtomic(field string, op profile.Op, v cue.Value, path string) (profile.Constraint, error) {
	switch op {
	case profile.OpIsNull:
		b, err := v.Bool()
		if err != nil {
			return nil, &CompileError{Field: path, Message: "expected a bool", Pos: v.Pos()}
		}
		if !b {
			return profile.IsNotNull(field), nil
		}
		return profile.IsNull(field), nil

	case profile.OpIsUnique:
		b, err := v.Bool()
		if err != nil || !b {
			return nil, &CompileError{Field: path, Message: "isUnique only accepts true", Pos: v.Pos()}
		}
		return profile.IsUnique(field), nil

	case profile.OpInSet:
		list, err := v.List()
		if err != nil {
			return nil, &CompileError{Field: path, Message: "expected a list", Pos: v.Pos()}
		}
		values := []ir.IRValue{}
		for i := 0; list.Next(); i++ {
			sv, err := scalar(list.Value(), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			values = append(values, sv)
		}
		return profile.InSet(field, values...), nil

	case profile.OpEqualTo:
		sv, err := scalar(v, path)
		if err != nil {
			return nil, err
		}
		return profile.EqualTo(field, sv), nil

	case profile.OpGreaterThan, profile.OpGreaterThanOrEqualTo, profile.OpLessThan, profile.OpLessThanOrEqualTo:
		n, err := number(v, path)
		if err != nil {
			return nil, err
		}
		return profile.Compare(field, op, n), nil

	case profile.OpAfter, profile.OpAfterOrAt, profile.OpBefore, profile.OpBeforeOrAt:
		t, err := datetime(v, path)
		if err != nil {
			return nil, err
		}
		return profile.Temporal(field, op, t), nil

	case profile.OpGranularTo:
		if u, err := v.String(); err == nil {
			return profile.GranularToUnit(field, ir.TimeUnit(u)), nil
		}
		n, err := number(v, path)
		if err != nil {
			return nil, err
		}
		places, ok := decimalPlaces(n.Decimal())
		if !ok {
			return nil, &CompileError{Field: path, Message: fmt.Sprintf("granularity %s must be 1 or a negative power of ten", n), Pos: v.Pos()}
		}
		return profile.GranularTo(field, places), nil

	case profile.OpMatchingRegex, profile.OpContainingRegex:
		pattern, err := v.String()
		if err != nil {
			return nil, &CompileError{Field: path, Message: "expected a regex string", Pos: v.Pos()}
		}
		if op == profile.OpMatchingRegex {
			return profile.MatchingRegex(field, pattern), nil
		}
		return profile.ContainingRegex(field, pattern), nil

	case profile.OpOfLength, profile.OpLongerThan, profile.OpShorterThan:
		n, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Field: path, Message: "expected an integer length", Pos: v.Pos()}
		}
		return profile.Length(field, op, int(n)), nil

	case profile.OpMatchesStandard:
		name, err := v.String()
		if err != nil {
			return nil, &CompileError{Field: path, Message: "expected a standard name", Pos: v.Pos()}
		}
		return profile.MatchesStandard(field, name), nil
	}
	return nil, &CompileError{Field: path, Message: fmt.Sprintf("unsupported operator %s", op), Pos: v.Pos()}
}

// structKeys returns the regular field labels of a struct in order.
func structKeys(v cue.Value, path string) ([]string, error) {
	if v.Kind() != cue.StructKind {
		return nil, &CompileError{Field: path, Message: "expected a struct", Pos: v.Pos()}
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var keys []string
	for iter.Next() {
		keys = append(keys, iter.Selector().Unquoted())
	}
	return keys, nil
}

// scalar converts a CUE string, number or {date: "..."} struct. Null is
// expressed with isNull.
func scalar(v cue.Value, path string) (ir.IRValue, error) {
	switch v.Kind() {
	case cue.StructKind:
		return datetime(v, path)
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.NewIRString(s), nil
	case cue.IntKind, cue.FloatKind:
		return number(v, path)
	case cue.NullKind:
		return nil, &CompileError{Field: path, Message: "null is not a value; use isNull", Pos: v.Pos()}
	default:
		return nil, &CompileError{Field: path, Message: fmt.Sprintf("expected a string or number, got %v", v.IncompleteKind()), Pos: v.Pos()}
	}
}

// datetime reads `{date: "2001-02-03T04:05:06.007Z"}`. Comparisons that
// only take datetimes also accept the bare string.
func datetime(v cue.Value, path string) (ir.IRDateTime, error) {
	lit := v
	if v.Kind() == cue.StructKind {
		keys, err := structKeys(v, path)
		if err != nil {
			return ir.IRDateTime{}, err
		}
		if len(keys) != 1 || keys[0] != "date" {
			return ir.IRDateTime{}, &CompileError{Field: path, Message: `expected {date: "..."}`, Pos: v.Pos()}
		}
		lit = v.LookupPath(cue.MakePath(cue.Str("date")))
		path += ".date"
	}
	s, err := lit.String()
	if err != nil {
		return ir.IRDateTime{}, &CompileError{Field: path, Message: "expected a datetime string", Pos: lit.Pos()}
	}
	t, err := ir.ParseIRDateTime(s)
	if err != nil {
		return ir.IRDateTime{}, &CompileError{Field: path, Message: err.Error(), Pos: lit.Pos()}
	}
	return t, nil
}

// number reads a CUE number exactly through its JSON literal; floats are
// never involved.
func number(v cue.Value, path string) (ir.IRNumber, error) {
	switch v.Kind() {
	case cue.IntKind, cue.FloatKind:
	default:
		return ir.IRNumber{}, &CompileError{Field: path, Message: "expected a number", Pos: v.Pos()}
	}
	lit, err := v.MarshalJSON()
	if err != nil {
		return ir.IRNumber{}, formatCUEError(err)
	}
	n, err := ir.ParseIRNumber(string(lit))
	if err != nil {
		return ir.IRNumber{}, &CompileError{Field: path, Message: err.Error(), Pos: v.Pos()}
	}
	return n, nil
}

// decimalPlaces maps 1, 0.1, 0.01, ... to 0, 1, 2, ...
func decimalPlaces(d *apd.Decimal) (int, bool) {
	var r apd.Decimal
	r.Reduce(d)
	if r.Negative || r.Exponent > 0 || r.Cmp(apd.New(1, r.Exponent)) != 0 {
		return 0, false
	}
	return int(-r.Exponent), true
}
