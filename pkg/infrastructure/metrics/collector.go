// Package metrics exposes Prometheus collectors for the weighting pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vsinha/tripweights/pkg/domain/entities"
)

const namespace = "tripweights"

// Pipeline stages counted by RowsTotal
const (
	StageVolume     = "volume"
	StageAdjustment = "adjustment"
	StageJoined     = "joined"
)

// Collector records pipeline counters. A nil *Collector is a no-op.
type Collector struct {
	rows         *prometheus.CounterVec
	cases        *prometheus.CounterVec
	malformed    *prometheus.CounterVec
	weekDuration prometheus.Histogram
}

// NewCollector creates the pipeline collectors and registers them with reg
// when it is not nil
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows processed per pipeline stage.",
		}, []string{"stage"}),
		cases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redistribution_cases_total",
			Help:      "Rows per sample redistribution case.",
		}, []string{"case"}),
		malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_keys_total",
			Help:      "Rows whose product code lacks a standard or resistance segment.",
		}, []string{"table"}),
		weekDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "week_duration_seconds",
			Help:      "Wall time to process one analysis week.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}

	if reg != nil {
		for _, collector := range []prometheus.Collector{c.rows, c.cases, c.malformed, c.weekDuration} {
			if err := reg.Register(collector); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// AddRows counts n rows for a stage
func (c *Collector) AddRows(stage string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.rows.WithLabelValues(stage).Add(float64(n))
}

// AddCase counts n rows that took a redistribution case
func (c *Collector) AddCase(rc entities.RedistributionCase, n int) {
	if c == nil || n == 0 {
		return
	}
	c.cases.WithLabelValues(rc.String()).Add(float64(n))
}

// AddMalformed counts malformed product codes found in a table
func (c *Collector) AddMalformed(table entities.Table, n int) {
	if c == nil || n == 0 {
		return
	}
	c.malformed.WithLabelValues(string(table)).Add(float64(n))
}

// ObserveWeek records the processing time of one week
func (c *Collector) ObserveWeek(d time.Duration) {
	if c == nil {
		return
	}
	c.weekDuration.Observe(d.Seconds())
}
