package combination

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datagen/internal/ir"
)

// column is a finite input of single-field bags field=v0, field=v1, ...
func column(field string, n int) iter.Seq2[ir.DataBag, error] {
	return FromSeq(func(yield func(ir.DataBag) bool) {
		for i := range n {
			bag := ir.SingleValueBag(ir.NewField(field), ir.NewIRString(fmt.Sprintf("%s%d", field, i)), ir.Provenance{})
			if !yield(bag) {
				return
			}
		}
	})
}

// endless never runs out.
func endless(field string) iter.Seq2[ir.DataBag, error] {
	return func(yield func(ir.DataBag, error) bool) {
		for i := 0; ; i++ {
			bag := ir.SingleValueBag(ir.NewField(field), ir.NewIRInt(int64(i)), ir.Provenance{})
			if !yield(bag, nil) {
				return
			}
		}
	}
}

// counted reports how many times the input was started.
func counted(in iter.Seq2[ir.DataBag, error], starts *int) iter.Seq2[ir.DataBag, error] {
	return func(yield func(ir.DataBag, error) bool) {
		*starts++
		for bag, err := range in {
			if !yield(bag, err) {
				return
			}
		}
	}
}

func render(t *testing.T, rows iter.Seq2[ir.DataBag, error], limit int) []string {
	t.Helper()
	var out []string
	for row, err := range rows {
		require.NoError(t, err)
		var parts []string
		for _, f := range row.Fields() {
			v, _ := row.Get(f)
			parts = append(parts, v.String())
		}
		out = append(out, strings.Join(parts, ","))
		if len(out) == limit {
			break
		}
	}
	return out
}

func TestExhaustive_CartesianProduct(t *testing.T) {
	rows := render(t, Exhaustive{}.Permute([]iter.Seq2[ir.DataBag, error]{column("a", 2), column("b", 3)}), -1)
	assert.Equal(t, []string{
		"a0,b0", "a0,b1", "a0,b2",
		"a1,b0", "a1,b1", "a1,b2",
	}, rows)
}

func TestExhaustive_ThreeInputs(t *testing.T) {
	rows := render(t, Exhaustive{}.Permute([]iter.Seq2[ir.DataBag, error]{column("a", 2), column("b", 1), column("c", 2)}), -1)
	assert.Equal(t, []string{"a0,b0,c0", "a0,b0,c1", "a1,b0,c0", "a1,b0,c1"}, rows)
}

func TestFieldExhaustive_VariesOneAtATime(t *testing.T) {
	rows := render(t, FieldExhaustive{}.Permute([]iter.Seq2[ir.DataBag, error]{column("a", 2), column("b", 3)}), -1)
	assert.Equal(t, []string{
		"a0,b0",
		"a1,b0",
		"a0,b1", "a0,b2",
	}, rows)
	assert.Len(t, rows, 1+(2-1)+(3-1))
}

func TestStrategies_EmptyInputYieldsNothing(t *testing.T) {
	for _, s := range []Strategy{Exhaustive{}, FieldExhaustive{}} {
		t.Run(s.Name(), func(t *testing.T) {
			for _, inputs := range [][]iter.Seq2[ir.DataBag, error]{
				{column("a", 0), column("b", 3)},
				{column("a", 3), column("b", 0)},
				{endless("a"), column("b", 0)},
			} {
				assert.Empty(t, render(t, s.Permute(inputs), -1))
			}
		})
	}
}

func TestStrategies_UnboundedInputs(t *testing.T) {
	ex := render(t, Exhaustive{}.Permute([]iter.Seq2[ir.DataBag, error]{column("a", 2), endless("b")}), 3)
	assert.Equal(t, []string{"a0,0", "a0,1", "a0,2"}, ex)

	fe := render(t, FieldExhaustive{}.Permute([]iter.Seq2[ir.DataBag, error]{endless("a"), column("b", 2)}), 3)
	assert.Equal(t, []string{"0,b0", "1,b0", "2,b0"}, fe)
}

func TestStrategies_SinglePassOverInputs(t *testing.T) {
	for _, s := range []Strategy{Exhaustive{}, FieldExhaustive{}} {
		t.Run(s.Name(), func(t *testing.T) {
			var a, b int
			inputs := []iter.Seq2[ir.DataBag, error]{counted(column("a", 3), &a), counted(column("b", 3), &b)}
			render(t, s.Permute(inputs), -1)
			assert.Equal(t, 1, a)
			assert.Equal(t, 1, b)
		})
	}
}

func TestStrategies_MergeConflict(t *testing.T) {
	for _, s := range []Strategy{Exhaustive{}, FieldExhaustive{}} {
		t.Run(s.Name(), func(t *testing.T) {
			clash := FromSeq(func(yield func(ir.DataBag) bool) {
				yield(ir.SingleValueBag(ir.NewField("a"), ir.NewIRString("other"), ir.Provenance{}))
			})
			var errs []error
			for _, err := range s.Permute([]iter.Seq2[ir.DataBag, error]{column("a", 1), clash}) {
				errs = append(errs, err)
			}
			require.Len(t, errs, 1)
			var mc *ir.MergeConflictError
			require.ErrorAs(t, errs[0], &mc)
			assert.Equal(t, "a", mc.Field.Name)
		})
	}
}

func TestStrategies_InputErrorEndsOutput(t *testing.T) {
	boom := errors.New("boom")
	failing := func(yield func(ir.DataBag, error) bool) {
		yield(ir.DataBag{}, boom)
	}
	for _, s := range []Strategy{Exhaustive{}, FieldExhaustive{}} {
		t.Run(s.Name(), func(t *testing.T) {
			var errs []error
			for _, err := range s.Permute([]iter.Seq2[ir.DataBag, error]{column("a", 2), failing}) {
				errs = append(errs, err)
			}
			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0], boom)
		})
	}
}

func TestLookup(t *testing.T) {
	s, err := Lookup("field-exhaustive")
	require.NoError(t, err)
	assert.Equal(t, NameFieldExhaustive, s.Name())

	_, err = Lookup("pairwise")
	assert.Error(t, err)
}

func TestZip(t *testing.T) {
	rows := render(t, Zip([]iter.Seq2[ir.DataBag, error]{column("a", 2), column("b", 3)}), -1)
	assert.Equal(t, []string{"a0,b0", "a1,b1"}, rows)

	assert.Equal(t, []string{""}, render(t, Zip(nil), -1))
}

func TestKeyed_EndsWithKey(t *testing.T) {
	for _, s := range []Strategy{Exhaustive{}, FieldExhaustive{}} {
		t.Run(s.Name(), func(t *testing.T) {
			rows := render(t, Keyed(s, column("k", 3), []iter.Seq2[ir.DataBag, error]{endless("n")}), -1)
			assert.Equal(t, []string{"k0,0", "k1,0", "k2,0"}, rows)
		})
	}
}

func TestKeyed_UnboundedKey(t *testing.T) {
	for _, s := range []Strategy{Exhaustive{}, FieldExhaustive{}} {
		t.Run(s.Name(), func(t *testing.T) {
			rows := render(t, Keyed(s, endless("k"), []iter.Seq2[ir.DataBag, error]{endless("a"), column("b", 2)}), 3)
			assert.Equal(t, []string{"0,b0,0", "0,b0,1", "0,b0,2"}, rows)
		})
	}
}

func TestKeyed_NoOtherInputs(t *testing.T) {
	rows := render(t, Keyed(FieldExhaustive{}, column("k", 2), nil), -1)
	assert.Equal(t, []string{"k0", "k1"}, rows)
}
