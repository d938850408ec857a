package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/datagen/internal/cli"
	"github.com/roach88/datagen/internal/combination"
	"github.com/roach88/datagen/internal/compiler"
	"github.com/roach88/datagen/internal/generator"
	"github.com/roach88/datagen/internal/profile"
	"github.com/roach88/datagen/internal/store"
)

// Harness is the scenario execution engine. One Harness runs one scenario
// against its own in-memory store.
type Harness struct {
	store  *store.Store
	gen    *generator.Generator
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load and validate the profile
// 2. Build the generator with a fixed run ID
// 3. Generate every row, storing each in a fresh in-memory database
// 4. Evaluate the assertions against the rows and the store
//
// An error means the scenario could not run; failed assertions are reported
// on the result instead.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	p, err := loadProfile(scenario)
	if err != nil {
		return nil, err
	}

	opts, err := generatorOptions(scenario)
	if err != nil {
		return nil, err
	}
	gen, err := generator.New(p, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build generator: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		gen:    gen,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	result, err := h.generate(ctx, p.Name)
	if err != nil {
		return nil, err
	}

	actx := &AssertionContext{Store: st, Ctx: ctx, RunID: result.Run.ID}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// generate drains the generator into the result and the store.
func (h *Harness) generate(ctx context.Context, profileName string) (*Result, error) {
	run := h.gen.Run()
	if err := h.store.WriteRun(ctx, store.RunRecord{
		ID:          run.ID,
		ProfileName: profileName,
		ProfileHash: run.ProfileHash,
		Mode:        string(run.Mode),
		Strategy:    run.Strategy,
	}); err != nil {
		return nil, fmt.Errorf("failed to write run: %w", err)
	}

	result := NewResult(run)
	var records []store.RowRecord
	for row, err := range h.gen.Generate(ctx) {
		if err != nil {
			return nil, fmt.Errorf("generation failed: %w", err)
		}
		result.AddRow(row)
		records = append(records, store.RowRecord{
			RunID:    run.ID,
			Seq:      row.Seq,
			Branch:   row.Branch,
			Violated: row.Violated,
			Data:     row.Data,
		})
	}

	if _, err := h.store.WriteRows(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to write rows: %w", err)
	}
	if err := h.store.FinishRun(ctx, run.ID, int64(len(records))); err != nil {
		return nil, fmt.Errorf("failed to finish run: %w", err)
	}
	h.logger.Debug("scenario generated", "run", run.ID, "rows", len(records))
	return result, nil
}

func loadProfile(s *Scenario) (*profile.Profile, error) {
	loaded, errs := cli.LoadProfiles(s.Profiles, cli.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load profiles: %w", errs[0])
	}
	p, err := loaded.Profile(s.Profile)
	if err != nil {
		return nil, err
	}
	if verrs := compiler.Validate(p); len(verrs) > 0 {
		return nil, fmt.Errorf("profile %q is invalid: %w", p.Name, verrs[0])
	}
	return p, nil
}

func generatorOptions(s *Scenario) ([]generator.Option, error) {
	opts := []generator.Option{
		generator.WithMaxRows(s.MaxRows),
		generator.WithValuesPerField(s.ValuesPerField),
		generator.WithRunIDGenerator(generator.NewFixedGenerator(s.RunID)),
	}
	if s.Mode != "" {
		mode, err := generator.ParseMode(s.Mode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, generator.WithMode(mode))
	}
	if s.Strategy != "" {
		strategy, err := combination.Lookup(s.Strategy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, generator.WithStrategy(strategy))
	}
	return opts, nil
}
