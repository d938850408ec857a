package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/datagen/internal/generator"
	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/profile"
)

type recorder struct {
	events []string
}

func (r *recorder) ValuePulled(f ir.Field, v ir.IRValue) {
	r.events = append(r.events, "pull "+f.Name+"="+v.String())
}
func (r *recorder) Backtracked(f ir.Field)   { r.events = append(r.events, "backtrack "+f.Name) }
func (r *recorder) Unsatisfiable(f ir.Field) { r.events = append(r.events, "unsat "+f.Name) }
func (r *recorder) RowEmitted(v string)      { r.events = append(r.events, "row "+v) }

var age = ir.NewField("age")

func fire(o Observer) {
	o.ValuePulled(age, ir.NewIRInt(18))
	o.ValuePulled(age, ir.NewIRInt(19))
	o.Unsatisfiable(age)
	o.Backtracked(age)
	o.RowEmitted("")
	o.RowEmitted("adult")
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	fire(Multi{a, b, Nop{}})

	want := []string{"pull age=18", "pull age=19", "unsat age", "backtrack age", "row ", "row adult"}
	assert.Equal(t, want, a.events)
	assert.Equal(t, want, b.events)
}

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewPrometheusObserver(reg)
	require.NoError(t, err)

	fire(o)
	assert.Equal(t, 2.0, testutil.ToFloat64(o.pulled.WithLabelValues("age")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.backtracks.WithLabelValues("age")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.unsatisfiable.WithLabelValues("age")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.rows.WithLabelValues("adult")))

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))
	assert.Contains(t, buf.String(), `datagen_walker_values_pulled_total{field="age"} 2`)
	assert.Contains(t, buf.String(), `datagen_rows_emitted_total{violated="adult"} 1`)

	_, err = NewPrometheusObserver(reg)
	assert.Error(t, err, "counters are already registered")
}

func TestPrometheusObserver_WithGenerator(t *testing.T) {
	// x in {1, 2, 3}, y <= 2, y > x: only x=1 leaves y a value.
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
	o, err := NewPrometheusObserver(prometheus.NewRegistry())
	require.NoError(t, err)

	g, err := generator.New(p,
		generator.WithObserver(o),
		generator.WithRunIDGenerator(generator.NewFixedGenerator("run-1")),
	)
	require.NoError(t, err)
	rows := 0
	for _, err := range g.Generate(context.Background()) {
		require.NoError(t, err)
		rows++
	}

	assert.Equal(t, 1, rows)
	assert.Equal(t, 3.0, testutil.ToFloat64(o.pulled.WithLabelValues("x")))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.unsatisfiable.WithLabelValues("y")))
}

func newOTel(t *testing.T) (*OTelObserver, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		tp.Shutdown(context.Background())
		mp.Shutdown(context.Background())
	})

	o, err := NewOTelObserver(context.Background(), OTelConfig{
		TracerProvider: tp,
		MeterProvider:  mp,
		RunID:          "run-1",
		Profile:        "people",
	})
	require.NoError(t, err)
	return o, spans, reader
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestOTelObserver(t *testing.T) {
	o, spans, reader := newOTel(t)
	fire(o)
	o.End(nil)
	o.End(errors.New("ignored"))

	ended := spans.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	assert.Equal(t, "datagen.generate", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)

	var events []string
	for _, e := range span.Events() {
		events = append(events, e.Name)
	}
	assert.Equal(t, []string{"unsatisfiable", "backtrack"}, events)

	attrs := map[string]string{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "run-1", attrs["datagen.run_id"])
	assert.Equal(t, "people", attrs["datagen.profile"])
	assert.Equal(t, "2", attrs["datagen.rows"])

	assert.Equal(t, int64(2), sumOf(t, reader, "datagen.walker.values_pulled"))
	assert.Equal(t, int64(1), sumOf(t, reader, "datagen.walker.backtracks"))
	assert.Equal(t, int64(2), sumOf(t, reader, "datagen.rows_emitted"))
}

func TestOTelObserver_EndWithError(t *testing.T) {
	o, spans, _ := newOTel(t)
	o.End(errors.New("walk failed"))

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "walk failed", ended[0].Status().Description)
}

func TestOTelObserver_DefaultProviders(t *testing.T) {
	o, err := NewOTelObserver(context.Background(), OTelConfig{})
	require.NoError(t, err)
	fire(o)
	o.End(nil)
	assert.NotNil(t, o.Context())
}
