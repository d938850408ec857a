package walker

import (
	"iter"

	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/restrictions"
)

// FixedField is the walker's cursor over one field: the spec its values are
// drawn from and the value it currently holds. A FixedField lives from the
// moment its field is fixed until its values run out or the walker
// backtracks past it.
type FixedField struct {
	field ir.Field
	spec  restrictions.FieldSpec

	next func() (ir.IRValue, bool)
	stop func()
	skip func(ir.IRValue) bool

	current ir.IRValue
	pulled  int
	limit   int
}

func newFixedField(f ir.Field, spec restrictions.FieldSpec, limit int) *FixedField {
	next, stop := iter.Pull(spec.Values())
	return &FixedField{field: f, spec: spec, next: next, stop: stop, limit: limit}
}

// Field returns the field being fixed.
func (f *FixedField) Field() ir.Field { return f.field }

// Spec returns the spec the values are drawn from.
func (f *FixedField) Spec() restrictions.FieldSpec { return f.spec }

// Current returns the value the field is fixed to, if any.
func (f *FixedField) Current() (ir.IRValue, bool) {
	return f.current, f.current != nil
}

// CurrentSpec is the spec admitting exactly the current value. Rows record
// it as provenance next to Spec. Valid only while Current reports a value.
func (f *FixedField) CurrentSpec() restrictions.FieldSpec {
	return restrictions.Singleton(f.current)
}

// advance moves to the next value, passing over values skip rejects. It
// returns false once the values, or the per-field cap, are exhausted.
func (f *FixedField) advance() (ir.IRValue, bool) {
	if f.limit > 0 && f.pulled >= f.limit {
		f.current = nil
		return nil, false
	}
	v, ok := f.next()
	for ok && f.skip != nil && f.skip(v) {
		v, ok = f.next()
	}
	if !ok {
		f.current = nil
		return nil, false
	}
	f.pulled++
	f.current = v
	return v, true
}

func (f *FixedField) close() { f.stop() }
