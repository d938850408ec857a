package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/datagen/internal/generator"
	"github.com/roach88/datagen/internal/store"
)

// storeBatch is how many rows are written per store transaction.
const storeBatch = 500

// storeSink batches generated rows into a store.
type storeSink struct {
	st      *store.Store
	runID   string
	pending []store.RowRecord
	rows    int64 // rows handed to add
	written int64 // rows new to the store
}

func newStoreSink(ctx context.Context, st *store.Store, run generator.Run, profileName string) (*storeSink, error) {
	err := st.WriteRun(ctx, store.RunRecord{
		ID:          run.ID,
		ProfileName: profileName,
		ProfileHash: run.ProfileHash,
		Mode:        string(run.Mode),
		Strategy:    run.Strategy,
	})
	if err != nil {
		return nil, err
	}
	return &storeSink{st: st, runID: run.ID}, nil
}

func (s *storeSink) add(ctx context.Context, row generator.Row) error {
	s.pending = append(s.pending, store.RowRecord{
		RunID:    s.runID,
		Seq:      row.Seq,
		Branch:   row.Branch,
		Violated: row.Violated,
		Data:     row.Data,
	})
	s.rows++
	if len(s.pending) >= storeBatch {
		return s.flush(ctx)
	}
	return nil
}

func (s *storeSink) flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	n, err := s.st.WriteRows(ctx, s.pending)
	if err != nil {
		return fmt.Errorf("store rows: %w", err)
	}
	s.written += int64(n)
	s.pending = s.pending[:0]
	return nil
}

// finish writes the remaining rows and records the row count on the run.
// A rerun of a stored run writes no new rows but keeps its count.
func (s *storeSink) finish(ctx context.Context) error {
	if err := s.flush(ctx); err != nil {
		return err
	}
	slog.Debug("rows stored", "run", s.runID, "rows", s.rows, "new", s.written)
	return s.st.FinishRun(ctx, s.runID, s.rows)
}
