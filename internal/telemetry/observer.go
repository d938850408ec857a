package telemetry

import (
	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/walker"
)

// RowObserver is notified of each row a run emits.
type RowObserver interface {
	// RowEmitted is called once per emitted row. violated names the rule the
	// row breaks, or is empty in valid mode.
	RowEmitted(violated string)
}

// Observer receives both walker and row events.
type Observer interface {
	walker.Observer
	RowObserver
}

// Multi fans every event out to each observer in order.
type Multi []Observer

var _ Observer = Multi(nil)

func (m Multi) ValuePulled(f ir.Field, v ir.IRValue) {
	for _, o := range m {
		o.ValuePulled(f, v)
	}
}

func (m Multi) Backtracked(f ir.Field) {
	for _, o := range m {
		o.Backtracked(f)
	}
}

func (m Multi) Unsatisfiable(f ir.Field) {
	for _, o := range m {
		o.Unsatisfiable(f)
	}
}

func (m Multi) RowEmitted(violated string) {
	for _, o := range m {
		o.RowEmitted(violated)
	}
}

// Nop ignores every event.
type Nop struct {
	walker.NopObserver
}

func (Nop) RowEmitted(string) {}
