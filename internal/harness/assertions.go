package harness

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/datagen/internal/generator"
	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/store"
)

// validIdentifier matches valid SQL identifiers (column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Rows     []generator.Row // Generated rows for context
}

// maxRowsShown caps the rows listed in an AssertionError.
const maxRowsShown = 10

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Rows) > 0 {
		fmt.Fprintf(&buf, "\nRows:\n")
		for i, row := range e.Rows {
			if i == maxRowsShown {
				fmt.Fprintf(&buf, "  ... %d more\n", len(e.Rows)-maxRowsShown)
				break
			}
			fmt.Fprintf(&buf, "  [%d] %s\n", row.Seq, describeRow(row))
		}
	}
	return buf.String()
}

func describeRow(row generator.Row) string {
	data, err := ir.MarshalCanonical(row.Data)
	if err != nil {
		data = []byte(err.Error())
	}
	if row.Violated != "" {
		return fmt.Sprintf("%s violates %q", data, row.Violated)
	}
	return string(data)
}

// assertRowCount checks the number of generated rows.
func assertRowCount(result *Result, a Assertion) error {
	if len(result.Rows) != a.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows", a.Count),
			Actual:   fmt.Sprintf("%d rows", len(result.Rows)),
			Rows:     result.Rows,
		}
	}
	return nil
}

// assertRowContains checks that some row holds every expected value
// (subset match).
func assertRowContains(result *Result, a Assertion) error {
	want, err := convertRow(a.Row)
	if err != nil {
		return fmt.Errorf("%s: %w", AssertRowContains, err)
	}
	for _, row := range result.Rows {
		if matchRow(row.Data, want) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertRowContains,
		Expected: fmt.Sprintf("a row with %s", formatMap(a.Row)),
		Actual:   "no matching row",
		Rows:     result.Rows,
	}
}

// assertAllRows checks that every row's value for the field is allowed.
func assertAllRows(result *Result, a Assertion) error {
	allowed := make([]ir.IRValue, len(a.In))
	for i, raw := range a.In {
		v, err := convertToIRValue(raw)
		if err != nil {
			return fmt.Errorf("%s: in[%d]: %w", AssertAllRows, i, err)
		}
		allowed[i] = v
	}

	for i, v := range result.Values(ir.NewField(a.Field)) {
		if !containsValue(allowed, v) {
			return &AssertionError{
				Type:     AssertAllRows,
				Expected: fmt.Sprintf("%s in %v", a.Field, a.In),
				Actual:   fmt.Sprintf("row %d has %s = %s", result.Rows[i].Seq, a.Field, v),
				Rows:     result.Rows,
			}
		}
	}
	return nil
}

// assertUniqueValues checks that no two rows share a non-null value.
func assertUniqueValues(result *Result, a Assertion) error {
	seen := make(map[string]int64)
	for i, v := range result.Values(ir.NewField(a.Field)) {
		if ir.IsNull(v) {
			continue
		}
		key := ir.Key(v)
		if first, ok := seen[key]; ok {
			return &AssertionError{
				Type:     AssertUniqueValues,
				Expected: fmt.Sprintf("distinct values of %s", a.Field),
				Actual:   fmt.Sprintf("rows %d and %d both have %s = %s", first, result.Rows[i].Seq, a.Field, v),
				Rows:     result.Rows,
			}
		}
		seen[key] = result.Rows[i].Seq
	}
	return nil
}

// assertViolatedCount checks how many rows violate the rule.
func assertViolatedCount(result *Result, a Assertion) error {
	count := 0
	for _, row := range result.Rows {
		if row.Violated == a.Rule {
			count++
		}
	}
	if count != a.Count {
		rule := fmt.Sprintf("violating %q", a.Rule)
		if a.Rule == "" {
			rule = "violating no rule"
		}
		return &AssertionError{
			Type:     AssertViolatedCount,
			Expected: fmt.Sprintf("%d rows %s", a.Count, rule),
			Actual:   fmt.Sprintf("%d rows", count),
			Rows:     result.Rows,
		}
	}
	return nil
}

// assertStoredRows counts the run's stored rows matching the where clause.
// Queries generated_rows with parameterized SQL.
//
// Security: Column names are validated against a whitelist pattern to
// prevent SQL injection via identifier interpolation.
func assertStoredRows(ctx context.Context, st *store.Store, runID string, a Assertion) error {
	whereSQL, whereArgs, err := buildWhereClause(a.Where)
	if err != nil {
		return err
	}

	query := "SELECT COUNT(*) FROM generated_rows WHERE run_id = ?"
	args := append([]any{runID}, whereArgs...)
	if whereSQL != "" {
		query += " AND " + whereSQL
	}

	rows, err := st.Query(ctx, query, args...)
	if err != nil {
		return &AssertionError{
			Type:     AssertStoredRows,
			Expected: fmt.Sprintf("query stored rows where %s", formatWhereClause(a.Where)),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return fmt.Errorf("scan count: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertStoredRows,
			Expected: fmt.Sprintf("%d stored rows where %s", a.Count, formatWhereClause(a.Where)),
			Actual:   fmt.Sprintf("%d stored rows", count),
		}
	}
	return nil
}

// buildWhereClause constructs parameterized WHERE clause from assertion.Where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for determinism.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML value to a SQL-compatible value.
func toSQLValue(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case string, int, int64, bool:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	return formatMap(where)
}

func formatMap(m map[string]any) string {
	keys := sortedKeys(m)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// matchRow checks if the row holds every expected value (subset match).
// Extra fields in the row are ignored.
func matchRow(row ir.DataBag, want map[ir.Field]ir.IRValue) bool {
	for f, expected := range want {
		actual, ok := row.Get(f)
		if !ok {
			actual = ir.IRNull{}
		}
		if !sameValue(actual, expected) {
			return false
		}
	}
	return true
}

func containsValue(set []ir.IRValue, v ir.IRValue) bool {
	for _, s := range set {
		if sameValue(v, s) {
			return true
		}
	}
	return false
}

// sameValue is ir.Equal, except that a datetime matches any string that
// parses to the same instant. YAML scenarios write datetimes as strings.
func sameValue(actual, expected ir.IRValue) bool {
	if d, ok := actual.(ir.IRDateTime); ok {
		if s, ok := expected.(ir.IRString); ok {
			want, err := ir.ParseIRDateTime(string(s))
			return err == nil && d.Cmp(want) == 0
		}
	}
	return ir.Equal(actual, expected)
}

// convertRow converts a YAML-parsed row to IR values.
func convertRow(raw map[string]any) (map[ir.Field]ir.IRValue, error) {
	out := make(map[ir.Field]ir.IRValue, len(raw))
	for key, val := range raw {
		v, err := convertToIRValue(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		out[ir.NewField(key)] = v
	}
	return out, nil
}

// convertToIRValue converts a YAML-parsed scalar to an IRValue. Numbers
// keep their exact decimal form.
func convertToIRValue(val any) (ir.IRValue, error) {
	switch v := val.(type) {
	case nil:
		return ir.IRNull{}, nil
	case string:
		return ir.NewIRString(v), nil
	case int:
		return ir.NewIRInt(int64(v)), nil
	case int64:
		return ir.NewIRInt(v), nil
	case float64:
		return ir.ParseIRNumber(strconv.FormatFloat(v, 'f', -1, 64))
	case time.Time:
		return ir.NewIRDateTime(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
	RunID string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for stored_rows assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRowCount:
			err = assertRowCount(result, assertion)
		case AssertRowContains:
			err = assertRowContains(result, assertion)
		case AssertAllRows:
			err = assertAllRows(result, assertion)
		case AssertUniqueValues:
			err = assertUniqueValues(result, assertion)
		case AssertViolatedCount:
			err = assertViolatedCount(result, assertion)
		case AssertStoredRows:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: stored_rows requires database context", i)
			} else {
				err = assertStoredRows(actx.Ctx, actx.Store, actx.RunID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
