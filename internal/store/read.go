package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadRun returns the run with the given id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, profile_name, profile_hash, mode, strategy, row_count
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run %q: %w", id, err)
	}
	return run, nil
}

// ReadRuns returns every run, ordered per CP-3 by id.
//
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ReadRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_name, profile_hash, mode, strategy, row_count
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRows returns the rows of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run has no rows.
func (s *Store) ReadRows(ctx context.Context, runID string) ([]RowRecord, error) {
	return s.queryRows(ctx, `
		SELECT run_id, seq, branch, violated, row_hash, data
		FROM generated_rows
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadRowsByHash returns every stored row with the given content hash,
// across runs, ordered by run then seq.
func (s *Store) ReadRowsByHash(ctx context.Context, hash string) ([]RowRecord, error) {
	return s.queryRows(ctx, `
		SELECT run_id, seq, branch, violated, row_hash, data
		FROM generated_rows
		WHERE row_hash = ?
		ORDER BY run_id COLLATE BINARY ASC, seq ASC
	`, hash)
}

// LastSeq returns the highest seq stored for a run, or 0 when it has none.
func (s *Store) LastSeq(ctx context.Context, runID string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM generated_rows WHERE run_id = ?`, runID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Store) queryRows(ctx context.Context, query string, args ...any) ([]RowRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	out := []RowRecord{}
	for rows.Next() {
		var r RowRecord
		var data string
		if err := rows.Scan(&r.RunID, &r.Seq, &r.Branch, &r.Violated, &r.Hash, &data); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Data, err = unmarshalData(data)
		if err != nil {
			return nil, fmt.Errorf("scan row %s/%d: %w", r.RunID, r.Seq, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var r RunRecord
	if err := row.Scan(&r.ID, &r.ProfileName, &r.ProfileHash, &r.Mode, &r.Strategy, &r.RowCount); err != nil {
		return RunRecord{}, err
	}
	return r, nil
}
