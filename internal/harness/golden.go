package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/datagen/internal/ir"
)

// Snapshot renders a result for golden comparison: a header line naming
// the run, then one canonical JSON object per row.
//
//	run scenario-run mode=valid strategy=field-exhaustive rows=2
//	{"branch":0,"data":{"age":18,"status":"active"},"seq":1,"violated":""}
//
// The profile hash is left out so fixtures survive changes to profile
// encoding that do not change the rows.
func Snapshot(result *Result) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "run %s mode=%s strategy=%s rows=%d\n",
		result.Run.ID, result.Run.Mode, result.Run.Strategy, len(result.Rows))
	for _, row := range result.Rows {
		line, err := ir.MarshalCanonical(map[string]any{
			"seq":      row.Seq,
			"branch":   row.Branch,
			"violated": row.Violated,
			"data":     row.Data,
		})
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row.Seq, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario, checks its assertions and compares the
// rows against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the rows don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if !result.Pass {
		t.Errorf("scenario %s failed:\n%v", scenario.Name, result.Errors)
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}
