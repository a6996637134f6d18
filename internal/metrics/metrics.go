// Package metrics provides Prometheus counters for validation and
// reconciliation runs. Metrics live on a private registry; the CLI dumps
// them in text exposition format instead of serving them over HTTP.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/tordrt/schemaguard/internal/reconcile"
	"github.com/tordrt/schemaguard/internal/validation"
)

const namespace = "schemaguard"

// Collector holds all metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	ValidationsTotal   *prometheus.CounterVec
	ValidationIssues   *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec

	ReconciliationsTotal *prometheus.CounterVec
	SchemaDrift          *prometheus.CounterVec

	InspectionsTotal *prometheus.CounterVec
	ModelsKnown      prometheus.Gauge
}

// New creates a collector on its own registry.
func New() *Collector {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates a collector registered on reg.
func NewWithRegistry(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		gatherer: reg,

		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Payload validations by model and result",
			},
			[]string{"model", "result"},
		),
		ValidationIssues: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_issues_total",
				Help:      "Validation errors and warnings by code",
			},
			[]string{"model", "code"},
		),
		ValidationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_duration_seconds",
				Help:      "Time spent validating one payload",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"model"},
		),

		ReconciliationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliations_total",
				Help:      "Model/table reconciliations by outcome",
			},
			[]string{"model", "outcome"},
		),
		SchemaDrift: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_drift_total",
				Help:      "Missing columns and type mismatches found by reconciliation",
			},
			[]string{"model", "kind"},
		),

		InspectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inspections_total",
				Help:      "Database inspections by dialect",
			},
			[]string{"dialect"},
		),
		ModelsKnown: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "models_known",
				Help:      "Number of models in the registry at last listing",
			},
		),
	}
}

// ObserveValidation records one Validate call.
func (c *Collector) ObserveValidation(model string, r *validation.Result, took time.Duration) {
	if c == nil || r == nil {
		return
	}
	result := "valid"
	if !r.IsValid {
		result = "invalid"
	}
	c.ValidationsTotal.WithLabelValues(model, result).Inc()
	c.ValidationDuration.WithLabelValues(model).Observe(took.Seconds())
	for _, issue := range r.Errors {
		c.ValidationIssues.WithLabelValues(model, issue.Code).Inc()
	}
	for _, issue := range r.Warnings {
		c.ValidationIssues.WithLabelValues(model, issue.Code).Inc()
	}
}

// ObserveReconcile records one reconciliation result.
func (c *Collector) ObserveReconcile(r *reconcile.Result) {
	if c == nil || r == nil {
		return
	}
	c.ReconciliationsTotal.WithLabelValues(r.ModelName, string(r.Outcome)).Inc()
	if n := len(r.MissingColumns); n > 0 {
		c.SchemaDrift.WithLabelValues(r.ModelName, "missing_column").Add(float64(n))
	}
	if n := len(r.TypeMismatches); n > 0 {
		c.SchemaDrift.WithLabelValues(r.ModelName, "type_mismatch").Add(float64(n))
	}
}

// ObserveInspection records one database inspection.
func (c *Collector) ObserveInspection(dialect string) {
	if c == nil {
		return
	}
	c.InspectionsTotal.WithLabelValues(dialect).Inc()
}

// SetModelsKnown records the registry size.
func (c *Collector) SetModelsKnown(n int) {
	if c == nil {
		return
	}
	c.ModelsKnown.Set(float64(n))
}

// WriteText writes every metric in Prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	if c == nil {
		return nil
	}
	families, err := c.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}
