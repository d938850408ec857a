package telemetry

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/datagen/internal/ir"
)

// instrumentationName scopes the tracer and meter.
const instrumentationName = "github.com/roach88/datagen"

// OTelConfig configures an OTelObserver.
type OTelConfig struct {
	// TracerProvider is the tracer provider to use.
	// If nil, uses the global tracer provider.
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If nil, uses the global meter provider.
	MeterProvider metric.MeterProvider

	// RunID and Profile are recorded on the run span.
	RunID   string
	Profile string
}

// OTelObserver records a run as one span and counts walker events.
//
// The span "datagen.generate" starts in NewOTelObserver and ends in End.
// Backtracks and unsatisfiable fields become span events; pulled values and
// emitted rows are only counted, since a run can pull millions of values.
//
// Thread Safety: Safe for concurrent use.
type OTelObserver struct {
	ctx  context.Context
	span trace.Span

	pulled        metric.Int64Counter
	backtracks    metric.Int64Counter
	unsatisfiable metric.Int64Counter
	rows          metric.Int64Counter

	mu      sync.Mutex
	emitted int64
	ended   bool
}

var _ Observer = (*OTelObserver)(nil)

// NewOTelObserver starts the run span as a child of ctx.
func NewOTelObserver(ctx context.Context, cfg OTelConfig) (*OTelObserver, error) {
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	o := &OTelObserver{}
	var err error
	if o.pulled, err = meter.Int64Counter("datagen.walker.values_pulled",
		metric.WithDescription("Values fixed by the walker")); err != nil {
		return nil, err
	}
	if o.backtracks, err = meter.Int64Counter("datagen.walker.backtracks",
		metric.WithDescription("Times the walker ran out of values for a field")); err != nil {
		return nil, err
	}
	if o.unsatisfiable, err = meter.Int64Counter("datagen.walker.unsatisfiable",
		metric.WithDescription("Times a field had no consistent value")); err != nil {
		return nil, err
	}
	if o.rows, err = meter.Int64Counter("datagen.rows_emitted",
		metric.WithDescription("Rows emitted")); err != nil {
		return nil, err
	}

	o.ctx, o.span = tp.Tracer(instrumentationName).Start(ctx, "datagen.generate",
		trace.WithAttributes(
			attribute.String("datagen.run_id", cfg.RunID),
			attribute.String("datagen.profile", cfg.Profile),
		),
	)
	return o, nil
}

// Context returns ctx carrying the run span.
func (o *OTelObserver) Context() context.Context { return o.ctx }

func (o *OTelObserver) ValuePulled(f ir.Field, _ ir.IRValue) {
	o.pulled.Add(o.ctx, 1, metric.WithAttributes(attribute.String("field", f.Name)))
}

func (o *OTelObserver) Backtracked(f ir.Field) {
	attrs := attribute.String("field", f.Name)
	o.backtracks.Add(o.ctx, 1, metric.WithAttributes(attrs))
	o.span.AddEvent("backtrack", trace.WithAttributes(attrs))
}

func (o *OTelObserver) Unsatisfiable(f ir.Field) {
	attrs := attribute.String("field", f.Name)
	o.unsatisfiable.Add(o.ctx, 1, metric.WithAttributes(attrs))
	o.span.AddEvent("unsatisfiable", trace.WithAttributes(attrs))
}

func (o *OTelObserver) RowEmitted(violated string) {
	o.rows.Add(o.ctx, 1, metric.WithAttributes(attribute.String("violated", violated)))
	o.mu.Lock()
	o.emitted++
	o.mu.Unlock()
}

// End finishes the run span, recording the row count and err. Calls after
// the first are ignored.
func (o *OTelObserver) End(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ended {
		return
	}
	o.ended = true

	o.span.SetAttributes(attribute.Int64("datagen.rows", o.emitted))
	switch {
	case err == nil:
		o.span.SetStatus(codes.Ok, "")
	case errors.Is(err, context.Canceled):
		o.span.SetStatus(codes.Error, "cancelled")
	default:
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	}
	o.span.End()
}
