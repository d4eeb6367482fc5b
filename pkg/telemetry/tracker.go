// Package telemetry exports entity cache stats as prometheus metrics.
package telemetry

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/bool64/stats"
	"github.com/goliatone/go-entity-cache/entitycache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	labelNamespace = "namespace"
	labelLookup    = "lookup"
)

// metricHelp describes the counters registered up front, with their labels.
var metricHelp = []struct {
	name   string
	help   string
	labels []string
}{
	{entitycache.MetricHit, "Cache reads that found a value, by namespace and lookup field.", []string{labelNamespace, labelLookup}},
	{entitycache.MetricMiss, "Cache reads that found no entry, by namespace and lookup field.", []string{labelNamespace, labelLookup}},
	{entitycache.MetricNotFoundHit, "Cache reads that found a negative marker, by namespace and lookup field.", []string{labelNamespace, labelLookup}},
	{entitycache.MetricStoreQuery, "Document store queries issued on a cache miss, by namespace and lookup field.", []string{labelNamespace, labelLookup}},
	{entitycache.MetricCoalesced, "Unique field lookups that shared another caller's result, by namespace and field.", []string{labelNamespace, labelLookup}},
	{entitycache.MetricInvalidation, "Cache invalidations after writes, by namespace.", []string{labelNamespace}},
	{entitycache.MetricInvalidationFailed, "Cache invalidations that failed after a committed write, by namespace.", []string{labelNamespace}},
}

// Tracker is a stats.Tracker backed by prometheus. Add feeds counters named
// <name>_total and Set feeds gauges named <name>.
//
// The entity cache counters are registered by NewTracker. Any other name is
// registered on first use with the label names of that call. Labels a metric
// was not registered with are ignored and missing ones are left empty.
type Tracker struct {
	registerer prometheus.Registerer
	counters   *xsync.MapOf[string, *vec[*prometheus.CounterVec]]
	gauges     *xsync.MapOf[string, *vec[*prometheus.GaugeVec]]
}

type vec[V any] struct {
	metric V
	labels []string
}

var _ stats.Tracker = (*Tracker)(nil)

// NewTracker registers the entity cache counters with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewTracker(reg prometheus.Registerer) (*Tracker, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	t := &Tracker{
		registerer: reg,
		counters:   xsync.NewMapOf[string, *vec[*prometheus.CounterVec]](),
		gauges:     xsync.NewMapOf[string, *vec[*prometheus.GaugeVec]](),
	}

	for _, m := range metricHelp {
		cv, err := t.registerCounter(m.name, m.help, m.labels)
		if err != nil {
			return nil, err
		}
		t.counters.Store(m.name, &vec[*prometheus.CounterVec]{metric: cv, labels: m.labels})
	}

	return t, nil
}

// Add increments the counter name.
func (t *Tracker) Add(_ context.Context, name string, increment float64, labelsAndValues ...string) {
	labels := toLabels(labelsAndValues)

	v, _ := t.counters.LoadOrCompute(name, func() *vec[*prometheus.CounterVec] {
		keys := labelNames(labels)
		cv, err := t.registerCounter(name, "Counter "+name+".", keys)
		if err != nil {
			return nil
		}
		return &vec[*prometheus.CounterVec]{metric: cv, labels: keys}
	})
	if v == nil {
		return
	}

	c, err := v.metric.GetMetricWith(fill(labels, v.labels))
	if err != nil {
		return
	}
	c.Add(increment)
}

// Set sets the gauge name.
func (t *Tracker) Set(_ context.Context, name string, absolute float64, labelsAndValues ...string) {
	labels := toLabels(labelsAndValues)

	v, _ := t.gauges.LoadOrCompute(name, func() *vec[*prometheus.GaugeVec] {
		keys := labelNames(labels)
		gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: metricName(name),
			Help: "Gauge " + name + ".",
		}, keys)
		gv, err := register(t.registerer, gv)
		if err != nil {
			return nil
		}
		return &vec[*prometheus.GaugeVec]{metric: gv, labels: keys}
	})
	if v == nil {
		return
	}

	g, err := v.metric.GetMetricWith(fill(labels, v.labels))
	if err != nil {
		return
	}
	g.Set(absolute)
}

func (t *Tracker) registerCounter(name, help string, labels []string) (*prometheus.CounterVec, error) {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricName(name) + "_total",
		Help: help,
	}, labels)
	return register(t.registerer, cv)
}

// register returns the already registered collector when an identical one exists,
// so several trackers can share a registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(name)
}

func toLabels(labelsAndValues []string) prometheus.Labels {
	labels := make(prometheus.Labels, len(labelsAndValues)/2)
	for i := 0; i+1 < len(labelsAndValues); i += 2 {
		labels[labelsAndValues[i]] = labelsAndValues[i+1]
	}
	return labels
}

func labelNames(labels prometheus.Labels) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fill keeps the labels a vector knows, defaulting missing ones to "".
func fill(labels prometheus.Labels, names []string) prometheus.Labels {
	out := make(prometheus.Labels, len(names))
	for _, name := range names {
		out[name] = labels[name]
	}
	return out
}
