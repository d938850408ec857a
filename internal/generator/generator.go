package generator

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/roach88/datagen/internal/combination"
	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/profile"
	"github.com/roach88/datagen/internal/refdata"
	"github.com/roach88/datagen/internal/tree"
	"github.com/roach88/datagen/internal/walker"
)

// Mode selects which rows are generated.
type Mode string

const (
	// ModeValid produces rows satisfying every rule.
	ModeValid Mode = "valid"

	// ModeViolating produces, for each rule, rows that break that rule and
	// satisfy all the others.
	ModeViolating Mode = "violating"
)

// Modes lists the supported modes.
var Modes = []Mode{ModeValid, ModeViolating}

// ParseMode maps a mode name to its Mode.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q: must be one of %v", s, Modes)
}

// Row is one generated row.
type Row struct {
	// Seq is the row's position in the run, starting at 1.
	Seq int64

	// Branch is the index of the decision tree branch the row came from.
	Branch int

	// Violated names the rule the row breaks; empty in valid mode.
	Violated string

	Data ir.DataBag
}

// Run identifies one generation run.
type Run struct {
	ID          string
	ProfileHash string
	Mode        Mode
	Strategy    string
}

// Generator produces the rows of a profile.
//
// Thread-safety: a Generator is immutable after New. Generate and
// CollectParallel may be called repeatedly, and every call restarts the
// clock and the uniqueness filter, so calls produce identical rows.
type Generator struct {
	profile *profile.Profile
	trees   []*tree.DecisionTree
	run     Run

	strategy combination.Strategy
	maxRows  int
	perField int
	order    []ir.Field
	observer walker.Observer
}

type options struct {
	mode     Mode
	strategy combination.Strategy
	maxRows  int
	perField int
	order    []string
	observer walker.Observer
	names    refdata.Provider
	runIDs   RunIDGenerator
}

// Option configures a Generator.
type Option func(*options)

// WithMode selects valid or violating rows. Default: ModeValid.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithStrategy sets how independent field groups combine.
// Default: combination.FieldExhaustive.
func WithStrategy(s combination.Strategy) Option {
	return func(o *options) { o.strategy = s }
}

// WithMaxRows stops the run after n rows. Zero or less means no limit.
func WithMaxRows(n int) Option {
	return func(o *options) { o.maxRows = n }
}

// WithValuesPerField caps the values the walker pulls per field.
func WithValuesPerField(n int) Option {
	return func(o *options) { o.perField = n }
}

// WithFieldOrder fixes the named fields first when walking.
func WithFieldOrder(names ...string) Option {
	return func(o *options) { o.order = names }
}

// WithObserver receives walker events. With CollectParallel the observer is
// called from several goroutines.
func WithObserver(obs walker.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithNames sets the reference data for name fields. Default:
// refdata.Default().
func WithNames(p refdata.Provider) Option {
	return func(o *options) { o.names = p }
}

// WithRunIDGenerator sets where run IDs come from. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(o *options) { o.runIDs = g }
}

// New builds the decision trees for p.
func New(p *profile.Profile, opts ...Option) (*Generator, error) {
	o := options{
		mode:     ModeValid,
		strategy: combination.FieldExhaustive{},
		observer: walker.NopObserver{},
		runIDs:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.names == nil {
		o.names = refdata.Default()
	}

	hash, err := p.Hash()
	if err != nil {
		return nil, &GenerationError{Code: ErrCodeBuildFailed, Message: "hashing profile", Branch: -1, Err: err}
	}

	var trees []*tree.DecisionTree
	switch o.mode {
	case ModeValid:
		t, err := tree.Build(p, o.names)
		if err != nil {
			return nil, &GenerationError{Code: ErrCodeBuildFailed, Message: "building decision tree", Branch: -1, Err: err}
		}
		trees = []*tree.DecisionTree{t}
	case ModeViolating:
		trees, err = tree.BuildViolating(p, o.names)
		if err != nil {
			return nil, &GenerationError{Code: ErrCodeBuildFailed, Message: "building violating trees", Branch: -1, Err: err}
		}
	default:
		return nil, &GenerationError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("unknown mode %q", o.mode), Branch: -1}
	}

	order := make([]ir.Field, len(o.order))
	for i, name := range o.order {
		order[i] = ir.NewField(name)
	}

	g := &Generator{
		profile: p,
		trees:   trees,
		run: Run{
			ID:          o.runIDs.Generate(),
			ProfileHash: hash,
			Mode:        o.mode,
			Strategy:    o.strategy.Name(),
		},
		strategy: o.strategy,
		maxRows:  o.maxRows,
		perField: o.perField,
		order:    order,
		observer: o.observer,
	}
	slog.Debug("generator ready",
		"run", g.run.ID,
		"profile", p.Name,
		"mode", o.mode,
		"trees", len(trees),
	)
	return g, nil
}

// Run returns the identity of the generator's run.
func (g *Generator) Run() Run { return g.run }

// Profile returns the profile rows are generated for.
func (g *Generator) Profile() *profile.Profile { return g.profile }

// Trees returns the decision trees rows are drawn from, in rule order for
// violating mode.
func (g *Generator) Trees() []*tree.DecisionTree { return g.trees }

// Generate lazily produces the run's rows. The sequence ends after the first
// error, or once MaxRows rows have been produced.
func (g *Generator) Generate(ctx context.Context) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		e := g.newEmitter()
		slog.Info("generation starting",
			"run", g.run.ID,
			"mode", g.run.Mode,
			"strategy", g.run.Strategy,
		)

		for j, err := range g.jobs() {
			if err != nil {
				yield(Row{}, err)
				return
			}
			if err := ctx.Err(); err != nil {
				yield(Row{}, g.cancelled(err))
				return
			}
			slog.Debug("walking branch", "run", g.run.ID, "branch", j.branch.Index, "violated", j.tree.Violated)

			for bag, err := range j.walk(g.strategy) {
				if err != nil {
					yield(Row{}, g.walkError(j, err))
					return
				}
				if err := ctx.Err(); err != nil {
					yield(Row{}, g.cancelled(err))
					return
				}
				row, ok := e.admit(j, bag)
				if !ok {
					continue
				}
				if !yield(row, nil) {
					return
				}
				if e.full() {
					slog.Info("generation stopped at max rows", "run", g.run.ID, "rows", e.clock.Current())
					return
				}
			}
		}
		slog.Info("generation complete", "run", g.run.ID, "rows", e.clock.Current())
	}
}

// job is one branch of one tree, ready to walk.
type job struct {
	tree   *tree.DecisionTree
	walker *walker.Walker
	branch tree.Branch
	unique []ir.Field
}

func (j job) walk(s combination.Strategy) iter.Seq2[ir.DataBag, error] {
	return j.walker.Walk(j.branch, s)
}

// jobs enumerates the satisfiable branches of every tree in order.
func (g *Generator) jobs() iter.Seq2[job, error] {
	return func(yield func(job, error) bool) {
		for _, t := range g.trees {
			w := walker.New(t,
				walker.WithObserver(g.observer),
				walker.WithValuesPerField(g.perField),
				walker.WithOrder(g.order...),
			)
			for b := range t.Branches() {
				specs, ok, err := t.Specs(b)
				if err != nil {
					yield(job{tree: t, branch: b}, g.walkError(job{tree: t, branch: b}, err))
					return
				}
				if !ok {
					slog.Debug("branch unsatisfiable", "run", g.run.ID, "branch", b.Index, "violated", t.Violated)
					continue
				}
				var unique []ir.Field
				for _, f := range t.Fields {
					if spec, ok := specs[f]; ok && spec.IsUnique() {
						unique = append(unique, f)
					}
				}
				if !yield(job{tree: t, walker: w, branch: b, unique: unique}, nil) {
					return
				}
			}
		}
	}
}

// emitter filters and stamps rows. One emitter serves one run.
type emitter struct {
	clock   *Clock
	unique  *UniqueFilter
	maxRows int
}

func (g *Generator) newEmitter() *emitter {
	return &emitter{clock: NewClock(), unique: NewUniqueFilter(), maxRows: g.maxRows}
}

func (e *emitter) admit(j job, bag ir.DataBag) (Row, bool) {
	if !e.unique.Admit(bag, j.unique) {
		return Row{}, false
	}
	return Row{
		Seq:      e.clock.Next(),
		Branch:   j.branch.Index,
		Violated: j.tree.Violated,
		Data:     bag,
	}, true
}

func (e *emitter) full() bool {
	return e.maxRows > 0 && e.clock.Current() >= int64(e.maxRows)
}

func (g *Generator) walkError(j job, err error) error {
	return &GenerationError{
		Code:     ErrCodeWalkFailed,
		Message:  "walking branch",
		RunID:    g.run.ID,
		Branch:   j.branch.Index,
		Violated: j.tree.Violated,
		Err:      err,
	}
}

func (g *Generator) cancelled(err error) error {
	return &GenerationError{Code: ErrCodeCancelled, Message: "generation cancelled", RunID: g.run.ID, Branch: -1, Err: err}
}
