package generator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datagen/internal/combination"
	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/profile"
	"github.com/roach88/datagen/internal/tree"
)

func render(r Row) string {
	var parts []string
	for _, f := range r.Data.Fields() {
		v, _ := r.Data.Get(f)
		parts = append(parts, f.Name+"="+v.String())
	}
	return fmt.Sprintf("%d b%d %q {%s}", r.Seq, r.Branch, r.Violated, strings.Join(parts, " "))
}

func collect(t *testing.T, g *Generator) []string {
	t.Helper()
	var out []string
	for row, err := range g.Generate(context.Background()) {
		require.NoError(t, err)
		out = append(out, render(row))
	}
	return out
}

func renderAll(rows []Row) []string {
	var out []string
	for _, r := range rows {
		out = append(out, render(r))
	}
	return out
}

func newGenerator(t *testing.T, p *profile.Profile, opts ...Option) *Generator {
	t.Helper()
	opts = append([]Option{WithRunIDGenerator(NewFixedGenerator("run-1"))}, opts...)
	g, err := New(p, opts...)
	require.NoError(t, err)
	return g
}

func ageStatus() *profile.Profile {
	return &profile.Profile{
		Name: "people",
		Fields: []profile.FieldDecl{
			{Name: "age", Type: profile.TypeInteger},
			{Name: "status", Type: profile.TypeString},
		},
		Rules: []profile.Rule{
			{Name: "adult", Constraints: []profile.Constraint{
				profile.Compare("age", profile.OpGreaterThanOrEqualTo, ir.NewIRInt(18)),
			}},
			{Name: "active", Constraints: []profile.Constraint{
				profile.InSet("status", ir.NewIRString("active")),
			}},
		},
	}
}

func TestGenerate_ValidRows(t *testing.T) {
	g := newGenerator(t, ageStatus(), WithValuesPerField(2))

	assert.Equal(t, []string{
		`1 b0 "" {age=18 status=active}`,
		`2 b0 "" {age=19 status=active}`,
	}, collect(t, g))
}

func TestGenerate_Run(t *testing.T) {
	p := ageStatus()
	g := newGenerator(t, p, WithStrategy(combination.Exhaustive{}))

	hash, err := p.Hash()
	require.NoError(t, err)
	assert.Equal(t, Run{ID: "run-1", ProfileHash: hash, Mode: ModeValid, Strategy: "exhaustive"}, g.Run())
	assert.Same(t, p, g.Profile())
	assert.Len(t, g.Trees(), 1)
}

func TestGenerate_ViolatingRows(t *testing.T) {
	g := newGenerator(t, ageStatus(), WithMode(ModeViolating), WithValuesPerField(2))
	require.Len(t, g.Trees(), 2)

	var rows []Row
	for row, err := range g.Generate(context.Background()) {
		require.NoError(t, err)
		rows = append(rows, row)
	}
	require.Len(t, rows, 5)

	// Breaking "adult": age below 18, status still active.
	assert.Equal(t, `1 b0 "adult" {age=0 status=active}`, render(rows[0]))
	assert.Equal(t, `2 b0 "adult" {age=1 status=active}`, render(rows[1]))

	// Breaking "active": adult age, any status but active.
	for i, r := range rows[2:] {
		assert.Equal(t, "active", r.Violated)
		assert.Equal(t, int64(i+3), r.Seq)
		age, _ := r.Data.Get(ir.NewField("age"))
		status, _ := r.Data.Get(ir.NewField("status"))
		assert.GreaterOrEqual(t, age.(ir.IRNumber).Cmp(ir.NewIRInt(18)), 0)
		assert.NotEqual(t, "active", status.String())
	}
}

func TestGenerate_MaxRows(t *testing.T) {
	p := &profile.Profile{Fields: []profile.FieldDecl{{Name: "n", Type: profile.TypeInteger}}}
	g := newGenerator(t, p, WithMaxRows(3))

	assert.Equal(t, []string{
		`1 b0 "" {n=0}`,
		`2 b0 "" {n=1}`,
		`3 b0 "" {n=2}`,
	}, collect(t, g))
}

func TestGenerate_UniqueFieldsDropRepeats(t *testing.T) {
	p := &profile.Profile{
		Fields: []profile.FieldDecl{
			{Name: "a", Type: profile.TypeInteger, Unique: true},
			{Name: "b", Type: profile.TypeString},
		},
		Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
			profile.InSet("a", ir.NewIRInt(1), ir.NewIRInt(2)),
			profile.InSet("b", ir.NewIRString("x"), ir.NewIRString("y")),
		}}},
	}
	g := newGenerator(t, p, WithStrategy(combination.Exhaustive{}))

	assert.Equal(t, []string{
		`1 b0 "" {a=1 b=x}`,
		`2 b0 "" {a=2 b=x}`,
	}, collect(t, g))
}

func TestGenerate_UniqueFieldBesideUnboundedField(t *testing.T) {
	str := profile.FieldDecl{Name: "s", Type: profile.TypeString}
	id := profile.FieldDecl{Name: "id", Type: profile.TypeInteger, Unique: true}

	for _, fields := range [][]profile.FieldDecl{{str, id}, {id, str}} {
		for _, s := range []combination.Strategy{combination.FieldExhaustive{}, combination.Exhaustive{}} {
			t.Run(s.Name()+"/"+fields[0].Name, func(t *testing.T) {
				g := newGenerator(t, &profile.Profile{Fields: fields}, WithStrategy(s), WithMaxRows(2))
				want := []string{
					`1 b0 "" {id=0 s=}`,
					`2 b0 "" {id=1 s=}`,
				}
				assert.Equal(t, want, collect(t, g))

				rows, err := g.CollectParallel(context.Background(), 2)
				require.NoError(t, err)
				assert.Equal(t, want, renderAll(rows))
			})
		}
	}
}

func TestGenerate_DateField(t *testing.T) {
	p := &profile.Profile{
		Name:   "loans",
		Fields: []profile.FieldDecl{{Name: "opened", Type: profile.TypeDate}},
		Rules: []profile.Rule{{Name: "recent", Constraints: []profile.Constraint{
			profile.Temporal("opened", profile.OpAfterOrAt, ir.MustParseIRDateTime("2001-01-01")),
		}}},
	}

	valid := newGenerator(t, p, WithValuesPerField(2))
	assert.Equal(t, []string{
		`1 b0 "" {opened=2001-01-01T00:00:00.000Z}`,
		`2 b0 "" {opened=2001-01-02T00:00:00.000Z}`,
	}, collect(t, valid))

	// Not after 2001 counts up from the epoch, one day at a time.
	violating := newGenerator(t, p, WithMode(ModeViolating), WithValuesPerField(2))
	assert.Equal(t, []string{
		`1 b0 "recent" {opened=1970-01-01T00:00:00.000Z}`,
		`2 b0 "recent" {opened=1970-01-02T00:00:00.000Z}`,
	}, collect(t, violating))
}

func TestGenerate_IsUniqueConstraint(t *testing.T) {
	p := &profile.Profile{
		Fields: []profile.FieldDecl{
			{Name: "a", Type: profile.TypeInteger},
			{Name: "b", Type: profile.TypeInteger},
		},
		Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
			profile.InSet("a", ir.NewIRInt(1)),
			profile.InSet("b", ir.NewIRInt(1), ir.NewIRInt(2)),
			profile.IsUnique("a"),
		}}},
	}
	g := newGenerator(t, p, WithStrategy(combination.Exhaustive{}))
	assert.Equal(t, []string{`1 b0 "" {a=1 b=1}`}, collect(t, g))
}

func TestGenerate_Deterministic(t *testing.T) {
	g := newGenerator(t, ageStatus(), WithMode(ModeViolating), WithValuesPerField(3))
	assert.Equal(t, collect(t, g), collect(t, g))
}

func TestGenerate_FieldOrder(t *testing.T) {
	p := &profile.Profile{
		Fields: []profile.FieldDecl{
			{Name: "x", Type: profile.TypeInteger},
			{Name: "y", Type: profile.TypeInteger},
		},
		Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
			profile.InSet("x", ir.NewIRInt(1), ir.NewIRInt(2), ir.NewIRInt(3)),
			profile.Compare("y", profile.OpLessThanOrEqualTo, ir.NewIRInt(2)),
			profile.Relation{Field: "y", Op: profile.RelGreaterThan, Other: "x"},
		}}},
	}
	for _, order := range [][]string{nil, {"y", "x"}} {
		g := newGenerator(t, p, WithFieldOrder(order...), WithValuesPerField(3))
		assert.Equal(t, []string{`1 b0 "" {x=1 y=2}`}, collect(t, g), "order %v", order)
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := newGenerator(t, ageStatus())
	var errs []error
	for _, err := range g.Generate(ctx) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, IsCancelled(errs[0]))
}

func TestNew_BuildError(t *testing.T) {
	p := &profile.Profile{
		Fields: []profile.FieldDecl{{Name: "a", Type: profile.TypeInteger}},
		Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
			profile.IsNull("ghost"),
		}}},
	}
	_, err := New(p)
	require.Error(t, err)
	assert.True(t, IsBuildError(err))
	assert.True(t, tree.IsUndeclaredField(err))
}

func TestNew_UnknownMode(t *testing.T) {
	_, err := New(ageStatus(), WithMode("chaotic"))
	assert.True(t, IsBuildError(err))

	_, err = ParseMode("chaotic")
	assert.Error(t, err)
	m, err := ParseMode("violating")
	require.NoError(t, err)
	assert.Equal(t, ModeViolating, m)
}

func TestGenerate_WalkError(t *testing.T) {
	p := &profile.Profile{
		Fields: []profile.FieldDecl{
			{Name: "s", Type: profile.TypeString},
			{Name: "u", Type: profile.TypeString},
		},
		Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
			profile.InSet("s", ir.NewIRString("p")),
			profile.Relation{Field: "u", Op: profile.RelEqualTo, Other: "s", Offset: apd.New(1, 0)},
		}}},
	}
	g := newGenerator(t, p)

	var errs []error
	for _, err := range g.Generate(context.Background()) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, IsWalkError(errs[0]))
	assert.Contains(t, errs[0].Error(), "run=run-1, branch=0")

	_, err := g.CollectParallel(context.Background(), 2)
	assert.True(t, IsWalkError(err))
}

// branchy has three branches; the unique code field lets only some rows of
// later branches through.
func branchy() *profile.Profile {
	return &profile.Profile{
		Fields: []profile.FieldDecl{
			{Name: "code", Type: profile.TypeInteger, Unique: true},
			{Name: "kind", Type: profile.TypeString},
		},
		Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
			profile.AnyOf{
				profile.AllOf{
					profile.InSet("kind", ir.NewIRString("a")),
					profile.InSet("code", ir.NewIRInt(1), ir.NewIRInt(2)),
				},
				profile.AllOf{
					profile.InSet("kind", ir.NewIRString("b")),
					profile.InSet("code", ir.NewIRInt(2), ir.NewIRInt(3), ir.NewIRInt(4)),
				},
				profile.AllOf{
					profile.InSet("kind", ir.NewIRString("c")),
					profile.Compare("code", profile.OpGreaterThanOrEqualTo, ir.NewIRInt(4)),
					profile.Compare("code", profile.OpLessThanOrEqualTo, ir.NewIRInt(6)),
				},
			},
		}}},
	}
}

func TestGenerate_BranchesInOrder(t *testing.T) {
	g := newGenerator(t, branchy())
	assert.Equal(t, []string{
		`1 b0 "" {code=1 kind=a}`,
		`2 b0 "" {code=2 kind=a}`,
		`3 b1 "" {code=3 kind=b}`,
		`4 b1 "" {code=4 kind=b}`,
		`5 b2 "" {code=5 kind=c}`,
		`6 b2 "" {code=6 kind=c}`,
	}, collect(t, g))
}

func TestCollectParallel_MatchesGenerate(t *testing.T) {
	for _, maxRows := range []int{0, 1, 3, 5} {
		g := newGenerator(t, branchy(), WithMaxRows(maxRows))
		want := collect(t, g)

		for _, limit := range []int{0, 1, 2, 8} {
			rows, err := g.CollectParallel(context.Background(), limit)
			require.NoError(t, err)
			assert.Equal(t, want, renderAll(rows), "maxRows=%d limit=%d", maxRows, limit)
		}
	}
}

func TestCollectParallel_UnboundedBranchWithMaxRows(t *testing.T) {
	p := &profile.Profile{
		Fields: []profile.FieldDecl{{Name: "n", Type: profile.TypeInteger}},
		Rules: []profile.Rule{{Name: "r", Constraints: []profile.Constraint{
			profile.AnyOf{
				profile.Compare("n", profile.OpGreaterThan, ir.NewIRInt(100)),
				profile.Compare("n", profile.OpLessThan, ir.NewIRInt(-100)),
			},
		}}},
	}
	g := newGenerator(t, p, WithMaxRows(200))

	rows, err := g.CollectParallel(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rows, 200)
	assert.Equal(t, `1 b0 "" {n=101}`, render(rows[0]))
	assert.Equal(t, int64(200), rows[199].Seq)
	assert.Equal(t, 0, rows[199].Branch, "the first branch never runs out")
}

func TestCollectParallel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := newGenerator(t, branchy())
	_, err := g.CollectParallel(ctx, 2)
	assert.True(t, IsCancelled(err))
}
