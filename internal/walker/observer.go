package walker

import "github.com/roach88/datagen/internal/ir"

// Observer receives walker events. Implementations must be cheap; they run
// on the value-pulling path.
type Observer interface {
	// ValuePulled is called each time a field is fixed to a new value.
	ValuePulled(f ir.Field, v ir.IRValue)

	// Backtracked is called when a field's values run out and the walker
	// returns to the previous field.
	Backtracked(f ir.Field)

	// Unsatisfiable is called when a field has no value consistent with the
	// fields fixed so far.
	Unsatisfiable(f ir.Field)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) ValuePulled(ir.Field, ir.IRValue) {}
func (NopObserver) Backtracked(ir.Field)             {}
func (NopObserver) Unsatisfiable(ir.Field)           {}
