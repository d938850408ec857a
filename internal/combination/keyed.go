package combination

import (
	"iter"

	"github.com/roach88/datagen/internal/ir"
)

// Zip merges the i-th element of every input into the i-th row and ends
// with the shortest input. No inputs yield one empty row.
func Zip(inputs []iter.Seq2[ir.DataBag, error]) iter.Seq2[ir.DataBag, error] {
	return func(yield func(ir.DataBag, error) bool) {
		cursors := open(inputs)
		defer closeAll(cursors)

		for {
			parts := make([]ir.DataBag, len(cursors))
			for i, c := range cursors {
				bag, err, ok := c.next()
				if err != nil {
					yield(ir.DataBag{}, err)
					return
				}
				if !ok {
					return
				}
				parts[i] = bag
			}
			row, err := ir.MergeAll(parts...)
			if !yield(row, err) || err != nil {
				return
			}
			if len(cursors) == 0 {
				return
			}
		}
	}
}

// keyPlacer is implemented by strategies that vary some input position
// before the others.
type keyPlacer interface {
	keyIndex(n int) int
}

func (Exhaustive) keyIndex(n int) int { return n - 1 }

func (FieldExhaustive) keyIndex(int) int { return 0 }

// Keyed composes inputs with key, a stream whose rows must not repeat in
// the output (the values of unique fields). key goes where s varies it
// first, and the output ends once key runs out: from then on every row
// would reuse one of key's rows.
func Keyed(s Strategy, key iter.Seq2[ir.DataBag, error], inputs []iter.Seq2[ir.DataBag, error]) iter.Seq2[ir.DataBag, error] {
	return func(yield func(ir.DataBag, error) bool) {
		exhausted := false
		tracked := func(yield func(ir.DataBag, error) bool) {
			for bag, err := range key {
				if !yield(bag, err) {
					return
				}
			}
			exhausted = true
		}

		at := 0
		if p, ok := s.(keyPlacer); ok {
			at = p.keyIndex(len(inputs) + 1)
		}
		all := make([]iter.Seq2[ir.DataBag, error], 0, len(inputs)+1)
		all = append(all, inputs[:at]...)
		all = append(all, tracked)
		all = append(all, inputs[at:]...)

		for row, err := range s.Permute(all) {
			if exhausted && err == nil {
				return
			}
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}
