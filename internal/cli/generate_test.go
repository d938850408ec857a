package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datagen/internal/generator"
	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/store"
)

func newTestGenerateCommand(runID string) *GenerateOptions {
	return &GenerateOptions{
		RootOptions: &RootOptions{Format: "text"},
		RunIDs:      generator.NewFixedGenerator(runID),
	}
}

func runGenerateCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return execute(newGenerateCommand(newTestGenerateCommand("run-1")), args...)
}

func TestGenerate_JSONLines(t *testing.T) {
	dir := writeProfiles(t, peopleProfile)

	out, _, err := runGenerateCmd(t, dir, "--values-per-field", "2")
	require.NoError(t, err)
	assert.Equal(t, "{\"age\":18,\"status\":\"active\"}\n{\"age\":19,\"status\":\"active\"}\n", out)
}

func TestGenerate_CSV(t *testing.T) {
	dir := writeProfiles(t, peopleProfile)

	out, _, err := runGenerateCmd(t, dir, "--values-per-field", "2", "--output", "csv")
	require.NoError(t, err)
	assert.Equal(t, "age,status\n18,active\n19,active\n", out)
}

func TestGenerate_ViolatingMode(t *testing.T) {
	dir := writeProfiles(t, peopleProfile)

	out, _, err := runGenerateCmd(t, dir, "--mode", "violating", "--values-per-field", "2", "--max-rows", "2")
	require.NoError(t, err)
	assert.Equal(t, "{\"age\":0,\"status\":\"active\"}\n{\"age\":1,\"status\":\"active\"}\n", out)
}

func TestGenerate_ParallelMatchesSequential(t *testing.T) {
	dir := writeProfiles(t, peopleProfile)

	seq, _, err := runGenerateCmd(t, dir, "--mode", "violating", "--values-per-field", "3")
	require.NoError(t, err)
	par, _, err := runGenerateCmd(t, dir, "--mode", "violating", "--values-per-field", "3", "--parallel", "4")
	require.NoError(t, err)
	assert.Equal(t, seq, par)
	assert.NotEmpty(t, seq)
}

func TestGenerate_OutFile(t *testing.T) {
	dir := writeProfiles(t, peopleProfile)
	path := filepath.Join(t.TempDir(), "rows.csv")

	out, _, err := runGenerateCmd(t, dir, "--values-per-field", "1", "--output", "csv", "--out", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "age,status\n18,active\n", string(data))
}

func TestGenerate_ConfigFile(t *testing.T) {
	dir := writeProfiles(t, peopleProfile)
	cfgPath := filepath.Join(t.TempDir(), "datagen.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("values_per_field: 2\noutput:\n  format: csv\n"), 0o644))

	out, _, err := runGenerateCmd(t, dir, "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "age,status\n18,active\n19,active\n", out)

	// Flags still win over the file.
	out, _, err = runGenerateCmd(t, dir, "--config", cfgPath, "--output", "json", "--values-per-field", "1")
	require.NoError(t, err)
	assert.Equal(t, "{\"age\":18,\"status\":\"active\"}\n", out)
}

func TestGenerate_Store(t *testing.T) {
	dir := writeProfiles(t, peopleProfile)
	dbPath := filepath.Join(t.TempDir(), "rows.db")

	_, _, err := runGenerateCmd(t, dir, "--values-per-field", "2", "--db", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	run, err := st.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "people", run.ProfileName)
	assert.Equal(t, "valid", run.Mode)
	assert.Equal(t, "field-exhaustive", run.Strategy)
	assert.Equal(t, int64(2), run.RowCount)
	assert.NotEmpty(t, run.ProfileHash)

	rows, err := st.ReadRows(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].Seq)
	age, ok := rows[1].Data.Get(ir.NewField("age"))
	require.True(t, ok)
	assert.Equal(t, "19", age.String())
	assert.Equal(t, ir.MustRowHash(rows[1].Data), rows[1].Hash)
}

func TestGenerate_StoreRunIsIdempotent(t *testing.T) {
	dir := writeProfiles(t, peopleProfile)
	dbPath := filepath.Join(t.TempDir(), "rows.db")

	for range 2 {
		_, _, err := runGenerateCmd(t, dir, "--values-per-field", "2", "--db", dbPath)
		require.NoError(t, err)
	}

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ReadRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(2), runs[0].RowCount)
	rows, err := st.ReadRows(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestGenerate_Metrics(t *testing.T) {
	dir := writeProfiles(t, peopleProfile)

	_, errOut, err := runGenerateCmd(t, dir, "--values-per-field", "2", "--metrics")
	require.NoError(t, err)
	assert.Contains(t, errOut, `datagen_rows_emitted_total{violated=""} 2`)
	assert.Contains(t, errOut, "datagen_walker_values_pulled_total")
}

func TestGenerate_Trace(t *testing.T) {
	dir := writeProfiles(t, peopleProfile)

	_, errOut, err := runGenerateCmd(t, dir, "--values-per-field", "2", "--trace")
	require.NoError(t, err)
	assert.Contains(t, errOut, "datagen.generate")
	assert.Contains(t, errOut, "run-1")
}

func TestGenerate_SelectProfile(t *testing.T) {
	dir := writeProfiles(t, peopleProfile, cityProfile)

	_, _, err := runGenerateCmd(t, dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeAmbiguous)

	out, _, err := runGenerateCmd(t, dir, "--profile", "cities")
	require.NoError(t, err)
	assert.Equal(t, "{\"city\":\"Leeds\"}\n{\"city\":\"York\"}\n", out)

	_, _, err = runGenerateCmd(t, dir, "--profile", "ghosts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

func TestGenerate_Errors(t *testing.T) {
	invalid := `package test

profile: broken: {
	fields: a: "string"
	rules: r: {field: "ghost", isNull: true}
}
`
	tests := []struct {
		name     string
		sources  []string
		args     []string
		wantCode int
		wantMsg  string
	}{
		{
			name:     "invalid config",
			sources:  []string{peopleProfile},
			args:     []string{"--parallel", "0"},
			wantCode: ExitCommandError,
			wantMsg:  ErrCodeConfig,
		},
		{
			name:     "unknown strategy",
			sources:  []string{peopleProfile},
			args:     []string{"--strategy", "random"},
			wantCode: ExitCommandError,
			wantMsg:  ErrCodeConfig,
		},
		{
			name:     "unknown output format",
			sources:  []string{peopleProfile},
			args:     []string{"--output", "xml"},
			wantCode: ExitCommandError,
			wantMsg:  ErrCodeConfig,
		},
		{
			name:     "invalid profile",
			sources:  []string{invalid},
			wantCode: ExitFailure,
			wantMsg:  "validation error",
		},
		{
			name:     "no files",
			wantCode: ExitCommandError,
			wantMsg:  ErrCodeNoFiles,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeProfiles(t, tt.sources...)
			_, _, err := runGenerateCmd(t, append([]string{dir}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestGenerate_MissingDirectory(t *testing.T) {
	_, _, err := runGenerateCmd(t, filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}
