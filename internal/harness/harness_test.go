package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datagen/internal/generator"
)

func peopleScenario(assertions ...Assertion) *Scenario {
	return &Scenario{
		Name:           "people",
		Description:    "people",
		Profiles:       filepath.Join(projectRoot(), "testdata", "profiles", "people"),
		ValuesPerField: 2,
		RunID:          DefaultRunID,
		Assertions:     assertions,
	}
}

func TestRun_Result(t *testing.T) {
	result, err := Run(peopleScenario(Assertion{Type: AssertRowCount, Count: 2}))
	require.NoError(t, err)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)
	assert.Equal(t, DefaultRunID, result.Run.ID)
	assert.Equal(t, generator.ModeValid, result.Run.Mode)
	assert.Equal(t, "field-exhaustive", result.Run.Strategy)
	assert.NotEmpty(t, result.Run.ProfileHash)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, int64(1), result.Rows[0].Seq)
	assert.Equal(t, int64(2), result.Rows[1].Seq)
}

func TestRun_FailedAssertions(t *testing.T) {
	result, err := Run(peopleScenario(
		Assertion{Type: AssertRowCount, Count: 3},
		Assertion{Type: AssertRowContains, Row: map[string]any{"age": 17}},
		Assertion{Type: AssertAllRows, Field: "age", In: []any{18}},
		Assertion{Type: AssertViolatedCount, Rule: "adult", Count: 1},
		Assertion{Type: AssertStoredRows, Count: 0},
		Assertion{Type: AssertUniqueValues, Field: "status"},
	))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "Expected: 3 rows")
	assert.Contains(t, result.Errors[0], "Actual: 2 rows")
	assert.Contains(t, result.Errors[1], "a row with age=17")
	assert.Contains(t, result.Errors[2], "row 2 has age = 19")
	assert.Contains(t, result.Errors[3], `1 rows violating "adult"`)
	assert.Contains(t, result.Errors[4], "Actual: 2 stored rows")
	assert.Contains(t, result.Errors[5], "rows 1 and 2 both have status = active")
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing profile", func(t *testing.T) {
		s := peopleScenario(Assertion{Type: AssertRowCount})
		s.Profile = "ghosts"
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `profile "ghosts" not found`)
	})

	t.Run("invalid profile", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "p.cue"), []byte(`package broken

profile: broken: {
	fields: a: "string"
	rules: r: {field: "ghost", isNull: true}
}
`), 0o644))
		s := peopleScenario(Assertion{Type: AssertRowCount})
		s.Profiles = dir
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `profile "broken" is invalid`)
		assert.Contains(t, err.Error(), "E201")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := RunContext(ctx, peopleScenario(Assertion{Type: AssertRowCount}))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunDir_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	profiles := filepath.Join(projectRoot(), "testdata", "profiles", "people")
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("a_pass.yaml", "name: a\ndescription: d\nprofiles: "+profiles+"\nvalues_per_field: 1\nassertions:\n  - type: row_count\n    count: 1\n")
	write("b_fail.yaml", "name: b\ndescription: d\nprofiles: "+profiles+"\nvalues_per_field: 1\nassertions:\n  - type: row_count\n    count: 9\n")
	write("c_bad.yaml", "name: c\n")
	write("notes.txt", "not a scenario")

	result, err := RunDir(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalScenarios)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, filepath.Join(dir, "b_fail.yaml"), result.Failures[0].ScenarioPath)
	assert.Contains(t, result.Failures[0].Error, "scenario assertions failed")
	assert.Contains(t, result.Failures[1].Error, "failed to load scenario")
}
