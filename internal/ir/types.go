package ir

import (
	"fmt"
	"slices"
)

// Field identifies a column of a profile. Fields compare by name and are
// used directly as map keys.
type Field struct {
	Name string `json:"name"`
}

// NewField creates a Field.
func NewField(name string) Field {
	return Field{Name: name}
}

func (f Field) String() string { return f.Name }

// Provenance records why a field holds its value in a generated row.
type Provenance struct {
	// Spec is the rendered field spec the value was drawn from.
	Spec string `json:"spec,omitempty"`

	// Value is the rendered spec admitting exactly the value.
	Value string `json:"value,omitempty"`
}

// DataBag is an immutable field → value mapping, the unit of output.
//
// DataBags are never mutated after construction. With and Merge return new
// bags; the zero DataBag is the empty bag.
type DataBag struct {
	values     map[Field]IRValue
	provenance map[Field]Provenance
}

// NewDataBag creates a bag from a value map. The map is copied.
func NewDataBag(values map[Field]IRValue) DataBag {
	bag := DataBag{values: make(map[Field]IRValue, len(values))}
	for f, v := range values {
		bag.values[f] = v
	}
	return bag
}

// SingleValueBag creates a bag holding one field.
func SingleValueBag(f Field, v IRValue, prov Provenance) DataBag {
	return DataBag{
		values:     map[Field]IRValue{f: v},
		provenance: map[Field]Provenance{f: prov},
	}
}

// Get returns the value of f, if present.
func (b DataBag) Get(f Field) (IRValue, bool) {
	v, ok := b.values[f]
	return v, ok
}

// Provenance returns the provenance recorded for f.
func (b DataBag) Provenance(f Field) Provenance {
	return b.provenance[f]
}

// Len returns the number of fields in the bag.
func (b DataBag) Len() int {
	return len(b.values)
}

// Fields returns the bag's fields sorted by name for deterministic iteration.
func (b DataBag) Fields() []Field {
	fields := make([]Field, 0, len(b.values))
	for f := range b.values {
		fields = append(fields, f)
	}
	slices.SortFunc(fields, func(x, y Field) int {
		return compareKeysRFC8785(x.Name, y.Name)
	})
	return fields
}

// With returns a copy of the bag with f set to v.
func (b DataBag) With(f Field, v IRValue, prov Provenance) DataBag {
	out := DataBag{
		values:     make(map[Field]IRValue, len(b.values)+1),
		provenance: make(map[Field]Provenance, len(b.provenance)+1),
	}
	for k, val := range b.values {
		out.values[k] = val
	}
	for k, p := range b.provenance {
		out.provenance[k] = p
	}
	out.values[f] = v
	out.provenance[f] = prov
	return out
}

// ToObject converts the bag to a name-keyed map, for serialization.
func (b DataBag) ToObject() map[string]IRValue {
	obj := make(map[string]IRValue, len(b.values))
	for f, v := range b.values {
		obj[f.Name] = v
	}
	return obj
}

// Merge unions the keys of two bags. Overlapping keys must agree; a
// disagreement means an upstream strategy broke its disjointness contract
// and is returned as *MergeConflictError.
func Merge(a, b DataBag) (DataBag, error) {
	out := DataBag{
		values:     make(map[Field]IRValue, len(a.values)+len(b.values)),
		provenance: make(map[Field]Provenance, len(a.provenance)+len(b.provenance)),
	}
	for f, v := range a.values {
		out.values[f] = v
	}
	for f, p := range a.provenance {
		out.provenance[f] = p
	}
	for f, v := range b.values {
		if existing, ok := out.values[f]; ok && !Equal(existing, v) {
			return DataBag{}, &MergeConflictError{Field: f, Left: existing, Right: v}
		}
		out.values[f] = v
	}
	for f, p := range b.provenance {
		if _, ok := out.provenance[f]; !ok {
			out.provenance[f] = p
		}
	}
	return out, nil
}

// MergeAll merges bags left to right.
func MergeAll(bags ...DataBag) (DataBag, error) {
	var out DataBag
	for _, bag := range bags {
		merged, err := Merge(out, bag)
		if err != nil {
			return DataBag{}, err
		}
		out = merged
	}
	return out, nil
}

// MergeConflictError reports two bags disagreeing on a shared field.
type MergeConflictError struct {
	Field Field
	Left  IRValue
	Right IRValue
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge conflict on field %q: %s != %s", e.Field.Name, e.Left, e.Right)
}
