package combination

import (
	"iter"

	"github.com/roach88/datagen/internal/ir"
)

// Exhaustive emits the cartesian product of its inputs with the right-most
// input varying fastest. Every input is pulled once; elements are kept so
// the product can revisit them. Output cardinality is the product of the
// input cardinalities, and an empty input yields nothing.
type Exhaustive struct{}

func (Exhaustive) Name() string { return NameExhaustive }

func (Exhaustive) Permute(inputs []iter.Seq2[ir.DataBag, error]) iter.Seq2[ir.DataBag, error] {
	return func(yield func(ir.DataBag, error) bool) {
		cursors := open(inputs)
		defer closeAll(cursors)

		n := len(cursors)
		seen := make([][]ir.DataBag, n)
		done := make([]bool, n)

		// fetch makes seen[i][j] available, pulling from input i if needed.
		fetch := func(i, j int) (bool, error) {
			for len(seen[i]) <= j {
				if done[i] {
					return false, nil
				}
				bag, err, ok := cursors[i].next()
				if err != nil {
					return false, err
				}
				if !ok {
					done[i] = true
					return false, nil
				}
				seen[i] = append(seen[i], bag)
			}
			return true, nil
		}

		idx := make([]int, n)
		for i := range n {
			ok, err := fetch(i, 0)
			if err != nil {
				yield(ir.DataBag{}, err)
				return
			}
			if !ok {
				return
			}
		}

		for {
			parts := make([]ir.DataBag, n)
			for i := range n {
				parts[i] = seen[i][idx[i]]
			}
			row, err := ir.MergeAll(parts...)
			if !yield(row, err) || err != nil {
				return
			}

			// odometer step, right-most first
			i := n - 1
			for ; i >= 0; i-- {
				ok, err := fetch(i, idx[i]+1)
				if err != nil {
					yield(ir.DataBag{}, err)
					return
				}
				if ok {
					idx[i]++
					break
				}
				idx[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}
