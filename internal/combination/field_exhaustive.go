package combination

import (
	"iter"

	"github.com/roach88/datagen/internal/ir"
)

// FieldExhaustive varies one input at a time around a baseline.
//
// The baseline is the first element of every input; it is emitted once.
// Then, for each input in order, every remaining element of that input is
// emitted with all other inputs held at their baseline. Output cardinality
// is 1 + sum(len(input) - 1). If any input is empty nothing is emitted.
//
// Each input is consumed by a single forward cursor and never restarted.
// Once an input is exhausted it stays at its baseline value.
type FieldExhaustive struct{}

func (FieldExhaustive) Name() string { return NameFieldExhaustive }

func (FieldExhaustive) Permute(inputs []iter.Seq2[ir.DataBag, error]) iter.Seq2[ir.DataBag, error] {
	return func(yield func(ir.DataBag, error) bool) {
		cursors := open(inputs)
		defer closeAll(cursors)

		baseline := make([]ir.DataBag, len(cursors))
		for i, c := range cursors {
			bag, err, ok := c.next()
			if err != nil {
				yield(ir.DataBag{}, err)
				return
			}
			if !ok {
				return
			}
			baseline[i] = bag
		}

		row, err := ir.MergeAll(baseline...)
		if !yield(row, err) || err != nil {
			return
		}

		parts := make([]ir.DataBag, len(baseline))
		for vary, c := range cursors {
			for {
				bag, err, ok := c.next()
				if err != nil {
					yield(ir.DataBag{}, err)
					return
				}
				if !ok {
					break
				}
				copy(parts, baseline)
				parts[vary] = bag
				row, err := ir.MergeAll(parts...)
				if !yield(row, err) || err != nil {
					return
				}
			}
		}
	}
}
