package telemetry

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/datagen/internal/ir"
)

// PrometheusObserver counts walker and row events on a registry.
//
// Metrics (namespace datagen):
//   - walker_values_pulled_total{field}
//   - walker_backtracks_total{field}
//   - walker_unsatisfiable_total{field}
//   - rows_emitted_total{violated}
//
// Thread Safety: Safe for concurrent use.
type PrometheusObserver struct {
	pulled        *prometheus.CounterVec
	backtracks    *prometheus.CounterVec
	unsatisfiable *prometheus.CounterVec
	rows          *prometheus.CounterVec
}

var _ Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver creates the counters and registers them on reg.
// Registering twice on the same registry fails.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		pulled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datagen",
			Subsystem: "walker",
			Name:      "values_pulled_total",
			Help:      "Values fixed by the walker, per field",
		}, []string{"field"}),
		backtracks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datagen",
			Subsystem: "walker",
			Name:      "backtracks_total",
			Help:      "Times the walker ran out of values for a field",
		}, []string{"field"}),
		unsatisfiable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datagen",
			Subsystem: "walker",
			Name:      "unsatisfiable_total",
			Help:      "Times a field had no value consistent with the fixed fields",
		}, []string{"field"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datagen",
			Name:      "rows_emitted_total",
			Help:      "Rows emitted, by violated rule (empty for valid rows)",
		}, []string{"violated"}),
	}
	for _, c := range []prometheus.Collector{o.pulled, o.backtracks, o.unsatisfiable, o.rows} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return o, nil
}

func (o *PrometheusObserver) ValuePulled(f ir.Field, _ ir.IRValue) {
	o.pulled.WithLabelValues(f.Name).Inc()
}

func (o *PrometheusObserver) Backtracked(f ir.Field) {
	o.backtracks.WithLabelValues(f.Name).Inc()
}

func (o *PrometheusObserver) Unsatisfiable(f ir.Field) {
	o.unsatisfiable.WithLabelValues(f.Name).Inc()
}

func (o *PrometheusObserver) RowEmitted(violated string) {
	o.rows.WithLabelValues(violated).Inc()
}

// WriteText writes every metric of g in the Prometheus text exposition
// format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
