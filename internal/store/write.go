package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/datagen/internal/ir"
)

// WriteRun inserts a run record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, profile_name, profile_hash, mode, strategy, row_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ProfileName,
		run.ProfileHash,
		run.Mode,
		run.Strategy,
		run.RowCount,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// FinishRun records how many rows a run produced.
func (s *Store) FinishRun(ctx context.Context, runID string, rowCount int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET row_count = ? WHERE id = ?`, rowCount, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %q: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// WriteRow inserts a row and reports whether it was new.
//
// Uses ON CONFLICT(run_id, seq) DO NOTHING per CP-1: writing the same seq of
// a run twice keeps the first row and returns inserted=false.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteRow(ctx context.Context, row RowRecord) (inserted bool, err error) {
	return writeRow(ctx, s.db, row)
}

// WriteRows inserts rows in a single transaction and returns how many were
// new. Either every row is written or none is.
func (s *Store) WriteRows(ctx context.Context, rows []RowRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write rows: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	written := 0
	for _, row := range rows {
		inserted, err := writeRow(ctx, tx, row)
		if err != nil {
			return 0, err
		}
		if inserted {
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write rows: commit: %w", err)
	}
	return written, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeRow(ctx context.Context, db execer, row RowRecord) (bool, error) {
	data, err := marshalData(row.Data)
	if err != nil {
		return false, fmt.Errorf("write row: %w", err)
	}
	hash := row.Hash
	if hash == "" {
		hash, err = ir.RowHash(row.Data)
		if err != nil {
			return false, fmt.Errorf("write row: %w", err)
		}
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO generated_rows
		(run_id, seq, branch, violated, row_hash, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		row.RunID,
		row.Seq,
		row.Branch,
		row.Violated,
		hash,
		data,
	)
	if err != nil {
		return false, fmt.Errorf("write row: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write row: rows affected: %w", err)
	}
	return n > 0, nil
}
