// Package combination composes independent row streams into complete rows.
//
// Each input is a lazy stream of partial rows over disjoint fields; a
// Strategy merges one element from every input into an output row. Outputs
// are produced on demand, so unbounded inputs are safe as long as the caller
// stops pulling.
package combination

import (
	"fmt"
	"iter"

	"github.com/roach88/datagen/internal/ir"
)

// Strategy composes input streams into rows. An error from an input, or a
// merge conflict, is yielded once and ends the output.
type Strategy interface {
	Permute(inputs []iter.Seq2[ir.DataBag, error]) iter.Seq2[ir.DataBag, error]
	Name() string
}

// Names of the built-in strategies, as accepted by Lookup.
const (
	NameExhaustive      = "exhaustive"
	NameFieldExhaustive = "field-exhaustive"
)

// Lookup returns the strategy registered under name.
func Lookup(name string) (Strategy, error) {
	switch name {
	case NameExhaustive:
		return Exhaustive{}, nil
	case NameFieldExhaustive:
		return FieldExhaustive{}, nil
	default:
		return nil, fmt.Errorf("unknown combination strategy %q", name)
	}
}

// FromSeq lifts an infallible stream.
func FromSeq(seq iter.Seq[ir.DataBag]) iter.Seq2[ir.DataBag, error] {
	return func(yield func(ir.DataBag, error) bool) {
		for bag := range seq {
			if !yield(bag, nil) {
				return
			}
		}
	}
}

// cursor is a single forward pass over one input.
type cursor struct {
	next func() (ir.DataBag, error, bool)
	stop func()
}

func open(inputs []iter.Seq2[ir.DataBag, error]) []*cursor {
	out := make([]*cursor, len(inputs))
	for i, in := range inputs {
		next, stop := iter.Pull2(in)
		out[i] = &cursor{next: next, stop: stop}
	}
	return out
}

func closeAll(cs []*cursor) {
	for _, c := range cs {
		c.stop()
	}
}
