package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/datagen/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run with minimal required fields.
func createTestRun(t *testing.T, s *Store, id string) RunRecord {
	t.Helper()
	run := RunRecord{
		ID:          id,
		ProfileName: "people",
		ProfileHash: "test-hash",
		Mode:        "valid",
		Strategy:    "field-exhaustive",
	}
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}

// createTestRow builds a row of a run with the given values.
func createTestRow(runID string, seq int64, age int64, name string) RowRecord {
	return RowRecord{
		RunID: runID,
		Seq:   seq,
		Data: ir.NewDataBag(map[ir.Field]ir.IRValue{
			ir.NewField("age"):  ir.NewIRInt(age),
			ir.NewField("name"): ir.NewIRString(name),
		}),
	}
}
