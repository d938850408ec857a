package generator

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/datagen/internal/ir"
)

// branchBuffer bounds how many rows a branch walker may run ahead of the
// consumer.
const branchBuffer = 64

// CollectParallel walks up to limit branches at once and returns the rows
// Generate would produce, in the same order with the same seq.
//
// Branches start in order and each one's rows are consumed only after every
// earlier branch is drained, so the uniqueness filter and the MaxRows cap
// see rows exactly as in Generate. A branch holding a worker slot is always
// the earliest unfinished one or behind it, so the pipeline cannot stall.
// With no MaxRows, every branch must be finite.
func (g *Generator) CollectParallel(ctx context.Context, limit int) ([]Row, error) {
	if limit < 1 {
		limit = 1
	}
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ectx := errgroup.WithContext(ctx)

	type branchOut struct {
		j    job
		rows chan ir.DataBag
	}
	// The dispatcher announces each branch on started before its walker
	// runs, so the consumer sees branches in order.
	started := make(chan branchOut, limit)
	slots := make(chan struct{}, limit)

	eg.Go(func() error {
		defer close(started)
		for j, err := range g.jobs() {
			if err != nil {
				return err
			}
			select {
			case slots <- struct{}{}:
			case <-ectx.Done():
				return nil
			}
			out := branchOut{j: j, rows: make(chan ir.DataBag, branchBuffer)}
			select {
			case started <- out:
			case <-ectx.Done():
				<-slots
				return nil
			}
			eg.Go(func() error {
				defer func() { <-slots }()
				defer close(out.rows)
				for bag, err := range out.j.walk(g.strategy) {
					if err != nil {
						return g.walkError(out.j, err)
					}
					select {
					case out.rows <- bag:
					case <-ectx.Done():
						return nil
					}
				}
				return nil
			})
		}
		return nil
	})

	e := g.newEmitter()
	var rows []Row
consume:
	for out := range started {
		slog.Debug("collecting branch", "run", g.run.ID, "branch", out.j.branch.Index, "violated", out.j.tree.Violated)
		for bag := range out.rows {
			row, ok := e.admit(out.j, bag)
			if !ok {
				continue
			}
			rows = append(rows, row)
			if e.full() {
				break consume
			}
		}
		if ectx.Err() != nil {
			break
		}
	}
	cancel()
	// Unblock the dispatcher if it is still announcing a branch.
	for range started {
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := parent.Err(); err != nil {
		return nil, g.cancelled(err)
	}
	slog.Info("parallel generation complete", "run", g.run.ID, "rows", len(rows), "workers", limit)
	return rows, nil
}
