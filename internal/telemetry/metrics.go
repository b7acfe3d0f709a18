package telemetry

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/san-kum/systree/internal/framework"
)

// Collector records cache traffic as Prometheus metrics. It implements
// framework.Observer and owns a private registry.
type Collector struct {
	hits          *prometheus.CounterVec
	recomputes    *prometheus.CounterVec
	recomputeTime *prometheus.HistogramVec
	changes       *prometheus.CounterVec
	invalidations *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewCollector creates a collector; namespace prefixes every metric name.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		hits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Cache reads served without recomputation",
			},
			[]string{"system", "entry"},
		),
		recomputes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_recomputes_total",
				Help:      "Cache entry recomputations",
			},
			[]string{"system", "entry"},
		),
		recomputeTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_recompute_seconds",
				Help:      "Time spent in cache entry calculators",
				Buckets:   prometheus.ExponentialBuckets(1e-7, 10, 8),
			},
			[]string{"system"},
		),
		changes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "value_changes_total",
				Help:      "Value change notifications by ticket",
			},
			[]string{"system", "ticket"},
		),
		invalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trackers_invalidated_total",
				Help:      "Trackers reached by change propagation",
			},
			[]string{"system"},
		),
		registry: prometheus.NewRegistry(),
	}
	c.registry.MustRegister(c.hits, c.recomputes, c.recomputeTime, c.changes, c.invalidations)
	return c
}

// Registry exposes the collector's registry, e.g. for promhttp.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) CacheHit(ctx *framework.Context, e *framework.CacheEntry) {
	c.hits.WithLabelValues(systemLabel(ctx), e.Description()).Inc()
}

func (c *Collector) CacheRecompute(ctx *framework.Context, e *framework.CacheEntry, elapsed time.Duration) {
	system := systemLabel(ctx)
	c.recomputes.WithLabelValues(system, e.Description()).Inc()
	c.recomputeTime.WithLabelValues(system).Observe(elapsed.Seconds())
}

func (c *Collector) ValueChanged(ctx *framework.Context, t framework.Ticket, reached int) {
	system := systemLabel(ctx)
	c.changes.WithLabelValues(system, t.String()).Inc()
	c.invalidations.WithLabelValues(system).Add(float64(reached))
}

func systemLabel(ctx *framework.Context) string {
	if p := ctx.Path(); p != "" {
		return p
	}
	return "/"
}

// Totals sums the collector's counters across all label values.
type Totals struct {
	Hits          float64
	Recomputes    float64
	Changes       float64
	Invalidations float64
}

// HitRatio is hits over all reads, or zero before any read.
func (t Totals) HitRatio() float64 {
	reads := t.Hits + t.Recomputes
	if reads == 0 {
		return 0
	}
	return t.Hits / reads
}

// Totals gathers the registry and sums every counter family.
func (c *Collector) Totals() (Totals, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return Totals{}, err
	}
	var t Totals
	for _, mf := range families {
		sum := sumCounters(mf)
		switch {
		case strings.HasSuffix(mf.GetName(), "cache_hits_total"):
			t.Hits = sum
		case strings.HasSuffix(mf.GetName(), "cache_recomputes_total"):
			t.Recomputes = sum
		case strings.HasSuffix(mf.GetName(), "value_changes_total"):
			t.Changes = sum
		case strings.HasSuffix(mf.GetName(), "trackers_invalidated_total"):
			t.Invalidations = sum
		}
	}
	return t, nil
}

func sumCounters(mf *dto.MetricFamily) float64 {
	if mf.GetType() != dto.MetricType_COUNTER {
		return 0
	}
	var sum float64
	for _, m := range mf.GetMetric() {
		sum += m.GetCounter().GetValue()
	}
	return sum
}
