package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/roach88/datagen/internal/compiler"
	"github.com/roach88/datagen/internal/config"
	"github.com/roach88/datagen/internal/generator"
	"github.com/roach88/datagen/internal/profile"
	"github.com/roach88/datagen/internal/refdata"
	"github.com/roach88/datagen/internal/store"
	"github.com/roach88/datagen/internal/telemetry"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	ConfigPath string
	Profile    string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs generator.RunIDGenerator
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	return newGenerateCommand(&GenerateOptions{RootOptions: rootOpts})
}

func newGenerateCommand(opts *GenerateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <profiles-dir>",
		Short: "Generate rows for a profile",
		Long: `Generate rows for a CUE profile.

Settings come from defaults, then --config (YAML), then DATAGEN_*
environment variables, then flags. Rows go to stdout (or --out) as JSON
lines or CSV, and optionally to a SQLite store (--db).

Example:
  datagen generate ./profiles --max-rows 100
  datagen generate ./profiles --profile trades --mode violating --output csv
  datagen generate ./profiles --db ./rows.db --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	d := config.Defaults()
	f := cmd.Flags()
	f.StringVar(&opts.ConfigPath, "config", "", "YAML config file")
	f.StringVar(&opts.Profile, "profile", "", "profile to generate (required when the directory declares several)")
	f.String("strategy", d.Strategy, "combination strategy (field-exhaustive|exhaustive)")
	f.String("mode", d.Mode, "valid rows, or rows violating one rule at a time (valid|violating)")
	f.Int("max-rows", d.MaxRows, "stop after this many rows (0 = no limit)")
	f.Int("values-per-field", d.ValuesPerField, "cap on values tried per field (0 = no cap)")
	f.Int("parallel", d.Parallel, "branches walked at once")
	f.StringSlice("field-order", nil, "fields to fix first, comma separated")
	f.String("names", "", "YAML file of first and last names")
	f.StringP("output", "o", d.Output.Format, "row format (json|csv)")
	f.String("out", "", "write rows to this file instead of stdout")
	f.String("db", "", "also store rows in this SQLite database")
	f.Bool("metrics", false, "print Prometheus counters to stderr after the run")
	f.Bool("trace", false, "print the run trace span to stderr")

	return cmd
}

func runGenerate(opts *GenerateOptions, dir string, cmd *cobra.Command) (err error) {
	cfg, err := config.Load(opts.ConfigPath, cmd.Flags())
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}

	p, err := loadProfile(dir, opts.Profile)
	if err != nil {
		return err
	}
	if verrs := compiler.Validate(p); len(verrs) > 0 {
		for _, v := range verrs {
			slog.Error("invalid profile", "profile", p.Name, "error", v.Error())
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("profile %q has %d validation error(s)", p.Name, len(verrs)), verrs[0])
	}
	for _, w := range compiler.AnalyzeCycles(p) {
		slog.Warn(w.Message, "profile", p.Name)
	}

	genOpts, err := generatorOptions(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = generator.UUIDv7Generator{}
	}
	runID := runIDs.Generate()
	genOpts = append(genOpts, generator.WithRunIDGenerator(generator.NewFixedGenerator(runID)))

	var observers telemetry.Multi
	var registry *prometheus.Registry
	if cfg.Telemetry.Metrics {
		registry = prometheus.NewRegistry()
		po, err := telemetry.NewPrometheusObserver(registry)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to set up metrics", err)
		}
		observers = append(observers, po)
	}
	if cfg.Telemetry.Trace {
		oo, shutdown, traceErr := newTraceObserver(ctx, cmd.ErrOrStderr(), runID, p.Name)
		if traceErr != nil {
			return WrapExitError(ExitCommandError, "failed to set up tracing", traceErr)
		}
		defer shutdown()
		defer func() { oo.End(err) }()
		observers = append(observers, oo)
	}
	if len(observers) > 0 {
		genOpts = append(genOpts, generator.WithObserver(observers))
	}

	g, err := generator.New(p, genOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to build profile", err)
	}

	out := cmd.OutOrStdout()
	if cfg.Output.Path != "" {
		file, err := os.Create(cfg.Output.Path)
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
		defer file.Close()
		out = file
	}
	rw, err := NewRowWriter(cfg.Output.Format, out, p.FieldOrder())
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}

	var sink *storeSink
	if cfg.Output.DB != "" {
		st, err := store.Open(cfg.Output.DB)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		sink, err = newStoreSink(ctx, st, g.Run(), p.Name)
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
	}

	var count int64
	emit := func(row generator.Row) error {
		if err := rw.Write(row); err != nil {
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
		if sink != nil {
			if err := sink.add(ctx, row); err != nil {
				return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
			}
		}
		observers.RowEmitted(row.Violated)
		count++
		return nil
	}

	genErr := generate(ctx, g, cfg.Parallel, emit)

	// Rows produced before a failure are still flushed and stored.
	if err := rw.Flush(); err != nil && genErr == nil {
		genErr = WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
	}
	if sink != nil {
		if err := sink.finish(context.WithoutCancel(ctx)); err != nil && genErr == nil {
			genErr = WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
	}
	if registry != nil {
		if err := telemetry.WriteText(cmd.ErrOrStderr(), registry); err != nil {
			slog.Error("error writing metrics", "error", err)
		}
	}
	if genErr != nil {
		return genErr
	}

	slog.Info("rows generated", "run", runID, "profile", p.Name, "rows", count)
	return nil
}

// generate drives g sequentially, or across workers when parallel > 1, and
// hands each row to emit.
func generate(ctx context.Context, g *generator.Generator, parallel int, emit func(generator.Row) error) error {
	if parallel > 1 {
		rows, err := g.CollectParallel(ctx, parallel)
		if err != nil {
			return generationExitError(err)
		}
		for _, row := range rows {
			if err := emit(row); err != nil {
				return err
			}
		}
		return nil
	}
	for row, err := range g.Generate(ctx) {
		if err != nil {
			return generationExitError(err)
		}
		if err := emit(row); err != nil {
			return err
		}
	}
	return nil
}

func generationExitError(err error) error {
	if generator.IsCancelled(err) {
		return WrapExitError(ExitFailure, "generation cancelled", err)
	}
	return WrapExitError(ExitFailure, "generation failed", err)
}

// generatorOptions maps the config onto generator options.
func generatorOptions(cfg config.Config) ([]generator.Option, error) {
	strategy, err := cfg.StrategyValue()
	if err != nil {
		return nil, err
	}
	mode, err := cfg.ModeValue()
	if err != nil {
		return nil, err
	}
	opts := []generator.Option{
		generator.WithStrategy(strategy),
		generator.WithMode(mode),
		generator.WithMaxRows(cfg.MaxRows),
		generator.WithValuesPerField(cfg.ValuesPerField),
		generator.WithFieldOrder(cfg.FieldOrder...),
	}
	if cfg.NamesFile != "" {
		names, err := refdata.LoadFile(cfg.NamesFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, generator.WithNames(names))
	}
	return opts, nil
}

// loadProfile loads dir and selects the named profile.
func loadProfile(dir, name string) (*profile.Profile, error) {
	result, errs := LoadProfiles(dir, LoadModeFailFast)
	if len(errs) > 0 {
		code := ErrCodeGeneric
		var loadErr *LoadError
		if errors.As(errs[0], &loadErr) {
			code = loadErr.Code
		}
		exitCode := ExitCommandError
		if strings.HasPrefix(code, "E1") {
			exitCode = ExitFailure
		}
		return nil, WrapExitError(exitCode, code, errs[0])
	}
	p, err := result.Profile(name)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to select profile", err)
	}
	return p, nil
}

// newTraceObserver exports the run span to w when it ends.
func newTraceObserver(ctx context.Context, w io.Writer, runID, profileName string) (*telemetry.OTelObserver, func(), error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	shutdown := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Error("error shutting down tracer", "error", err)
		}
	}
	oo, err := telemetry.NewOTelObserver(ctx, telemetry.OTelConfig{
		TracerProvider: tp,
		RunID:          runID,
		Profile:        profileName,
	})
	if err != nil {
		shutdown()
		return nil, nil, err
	}
	return oo, shutdown, nil
}
