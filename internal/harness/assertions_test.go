package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datagen/internal/generator"
	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/store"
)

func bag(kv ...any) ir.DataBag {
	values := make(map[ir.Field]ir.IRValue)
	for i := 0; i < len(kv); i += 2 {
		values[ir.NewField(kv[i].(string))] = kv[i+1].(ir.IRValue)
	}
	return ir.NewDataBag(values)
}

func testResult() *Result {
	r := NewResult(generator.Run{ID: "r1", Mode: generator.ModeViolating, Strategy: "exhaustive"})
	r.AddRow(generator.Row{Seq: 1, Violated: "cheap", Data: bag("price", ir.MustParseIRNumber("0.50"), "code", ir.NewIRString("A"))})
	r.AddRow(generator.Row{Seq: 2, Violated: "cheap", Data: bag("price", ir.NewIRInt(2), "code", ir.IRNull{})})
	r.AddRow(generator.Row{Seq: 3, Violated: "coded", Data: bag("price", ir.NewIRInt(3), "code", ir.IRNull{})})
	return r
}

func TestAssertRowContains(t *testing.T) {
	r := testResult()

	tests := []struct {
		name string
		row  map[string]any
		pass bool
	}{
		{"decimal from yaml float", map[string]any{"price": 0.5}, true},
		{"integer", map[string]any{"price": 2}, true},
		{"subset", map[string]any{"code": "A"}, true},
		{"null", map[string]any{"price": 3, "code": nil}, true},
		{"missing field matches null", map[string]any{"colour": nil}, true},
		{"no row has both", map[string]any{"price": 2, "code": "A"}, false},
		{"type mismatch", map[string]any{"code": 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertRowContains(r, Assertion{Type: AssertRowContains, Row: tt.row})
			if tt.pass {
				assert.NoError(t, err)
			} else {
				var ae *AssertionError
				assert.ErrorAs(t, err, &ae)
			}
		})
	}

	err := assertRowContains(r, Assertion{Type: AssertRowContains, Row: map[string]any{"price": true}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type bool")
}

func TestAssertAllRows(t *testing.T) {
	r := testResult()
	assert.NoError(t, assertAllRows(r, Assertion{Field: "code", In: []any{"A", nil}}))
	assert.NoError(t, assertAllRows(r, Assertion{Field: "price", In: []any{0.5, 2, 3}}))

	err := assertAllRows(r, Assertion{Field: "code", In: []any{"A"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2 has code = null")
}

func TestAssertRowContains_DateTimes(t *testing.T) {
	r := NewResult(generator.Run{ID: "r1", Mode: generator.ModeValid, Strategy: "exhaustive"})
	r.AddRow(generator.Row{Seq: 1, Data: bag("opened", ir.MustParseIRDateTime("2001-02-03"))})

	assert.NoError(t, assertRowContains(r, Assertion{Row: map[string]any{"opened": "2001-02-03T00:00:00.000Z"}}))
	assert.NoError(t, assertRowContains(r, Assertion{Row: map[string]any{"opened": "2001-02-03"}}))
	assert.NoError(t, assertRowContains(r, Assertion{Row: map[string]any{"opened": time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC)}}))
	assert.Error(t, assertRowContains(r, Assertion{Row: map[string]any{"opened": "2001-02-04"}}))
	assert.NoError(t, assertAllRows(r, Assertion{Field: "opened", In: []any{"2001-02-03"}}))
}

func TestAssertUniqueValues(t *testing.T) {
	r := testResult()
	assert.NoError(t, assertUniqueValues(r, Assertion{Field: "code"}), "nulls may repeat")
	assert.NoError(t, assertUniqueValues(r, Assertion{Field: "price"}))

	r.AddRow(generator.Row{Seq: 4, Data: bag("price", ir.MustParseIRNumber("2.00"))})
	err := assertUniqueValues(r, Assertion{Field: "price"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rows 2 and 4 both have price = 2.00")
}

func TestAssertViolatedCount(t *testing.T) {
	r := testResult()
	assert.NoError(t, assertViolatedCount(r, Assertion{Rule: "cheap", Count: 2}))
	assert.NoError(t, assertViolatedCount(r, Assertion{Rule: "", Count: 0}))

	err := assertViolatedCount(r, Assertion{Rule: "", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 rows violating no rule")
}

func TestAssertionError_ListsRows(t *testing.T) {
	err := assertRowCount(testResult(), Assertion{Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Assertion failed: row_count")
	assert.Contains(t, err.Error(), `[1] {"code":"A","price":0.50} violates "cheap"`)
	assert.Contains(t, err.Error(), `[3] {"code":null,"price":3} violates "coded"`)
}

func TestAssertionError_CapsRows(t *testing.T) {
	r := NewResult(generator.Run{})
	for i := range 12 {
		r.AddRow(generator.Row{Seq: int64(i + 1), Data: bag("n", ir.NewIRInt(int64(i)))})
	}
	err := assertRowCount(r, Assertion{Count: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[10] ")
	assert.NotContains(t, err.Error(), "[11] ")
	assert.Contains(t, err.Error(), "... 2 more")
}

func TestAssertStoredRows(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	r := testResult()
	require.NoError(t, st.WriteRun(ctx, store.RunRecord{ID: "r1", ProfileName: "p", ProfileHash: "h", Mode: "violating", Strategy: "exhaustive"}))
	var records []store.RowRecord
	for _, row := range r.Rows {
		records = append(records, store.RowRecord{RunID: "r1", Seq: row.Seq, Branch: row.Branch, Violated: row.Violated, Data: row.Data})
	}
	_, err = st.WriteRows(ctx, records)
	require.NoError(t, err)

	assert.NoError(t, assertStoredRows(ctx, st, "r1", Assertion{Count: 3}))
	assert.NoError(t, assertStoredRows(ctx, st, "r1", Assertion{Where: map[string]any{"violated": "cheap"}, Count: 2}))
	assert.NoError(t, assertStoredRows(ctx, st, "r1", Assertion{Where: map[string]any{"violated": "coded", "seq": 3}, Count: 1}))
	assert.NoError(t, assertStoredRows(ctx, st, "other", Assertion{Count: 0}))

	err = assertStoredRows(ctx, st, "r1", Assertion{Where: map[string]any{"violated": "cheap"}, Count: 1})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "2 stored rows", ae.Actual)

	err = assertStoredRows(ctx, st, "r1", Assertion{Where: map[string]any{"1=1; DROP TABLE runs; --": 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid column name")

	err = assertStoredRows(ctx, st, "r1", Assertion{Where: map[string]any{"colour": "red"}})
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Actual, "query error")
}

func TestBuildWhereClause(t *testing.T) {
	sql, args, err := buildWhereClause(map[string]any{"violated": "x", "branch": 1})
	require.NoError(t, err)
	assert.Equal(t, "branch = ? AND violated = ?", sql)
	assert.Equal(t, []any{1, "x"}, args)

	sql, args, err = buildWhereClause(nil)
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Nil(t, args)
}

func TestEvaluateAssertions(t *testing.T) {
	r := testResult()
	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertRowCount, Count: 3},
		{Type: AssertStoredRows, Count: 3},
		{Type: "vibes"},
	}, nil)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "stored_rows requires database context")
	assert.Contains(t, errs[1], `unknown assertion type "vibes"`)
}
