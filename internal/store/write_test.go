package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/roach88/datagen/internal/ir"
)

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun(t, s, "run-1")
	changed := run
	changed.Mode = "violating"
	if err := s.WriteRun(ctx, changed); err != nil {
		t.Fatalf("second WriteRun() failed: %v", err)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got != run {
		t.Errorf("ReadRun() = %+v, want first write %+v", got, run)
	}
}

func TestWriteRow_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	row := createTestRow("run-1", 1, 30, "Ada")
	row.Branch = 2
	row.Violated = "adult"
	inserted, err := s.WriteRow(ctx, row)
	if err != nil {
		t.Fatalf("WriteRow() failed: %v", err)
	}
	if !inserted {
		t.Error("first WriteRow() should insert")
	}

	var hash, data, violated string
	var branch int
	err = s.db.QueryRow(`
		SELECT row_hash, data, branch, violated FROM generated_rows WHERE run_id = ? AND seq = ?
	`, "run-1", 1).Scan(&hash, &data, &branch, &violated)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if want := ir.MustRowHash(row.Data); hash != want {
		t.Errorf("row_hash = %q, want %q", hash, want)
	}
	if want := `{"age":30,"name":"Ada"}`; data != want {
		t.Errorf("data = %q, want %q", data, want)
	}
	if branch != 2 || violated != "adult" {
		t.Errorf("branch, violated = %d, %q", branch, violated)
	}
}

func TestWriteRow_IdempotentOnSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	if _, err := s.WriteRow(ctx, createTestRow("run-1", 1, 30, "Ada")); err != nil {
		t.Fatalf("WriteRow() failed: %v", err)
	}
	inserted, err := s.WriteRow(ctx, createTestRow("run-1", 1, 40, "Grace"))
	if err != nil {
		t.Fatalf("duplicate WriteRow() failed: %v", err)
	}
	if inserted {
		t.Error("duplicate WriteRow() should not insert")
	}

	rows, err := s.ReadRows(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRows() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	name, _ := rows[0].Data.Get(ir.NewField("name"))
	if name.String() != "Ada" {
		t.Errorf("name = %q, want first write %q", name, "Ada")
	}
}

func TestWriteRow_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	_, err := s.WriteRow(context.Background(), createTestRow("missing", 1, 30, "Ada"))
	if err == nil {
		t.Fatal("WriteRow() for an unknown run should fail the foreign key")
	}
}

func TestWriteRows_Transaction(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	n, err := s.WriteRows(ctx, []RowRecord{
		createTestRow("run-1", 1, 30, "Ada"),
		createTestRow("run-1", 2, 31, "Ada"),
		createTestRow("run-1", 2, 32, "Ada"),
	})
	if err != nil {
		t.Fatalf("WriteRows() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("WriteRows() = %d new rows, want 2", n)
	}

	// A failing row rolls back the whole batch.
	_, err = s.WriteRows(ctx, []RowRecord{
		createTestRow("run-1", 3, 33, "Ada"),
		createTestRow("missing", 1, 30, "Ada"),
	})
	if err == nil {
		t.Fatal("WriteRows() with an unknown run should fail")
	}
	last, err := s.LastSeq(ctx, "run-1")
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if last != 2 {
		t.Errorf("LastSeq() = %d, want 2 after rollback", last)
	}
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	if err := s.FinishRun(ctx, "run-1", 42); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}
	run, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if run.RowCount != 42 {
		t.Errorf("RowCount = %d, want 42", run.RowCount)
	}

	if err := s.FinishRun(ctx, "missing", 1); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("FinishRun(missing) = %v, want sql.ErrNoRows", err)
	}
}
