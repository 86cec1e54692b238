// Package metrics exports accessor counters through Prometheus.
package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"fitsync-go/internal/fitsync"
)

const namespace = "fitsync"

// Prometheus implements fitsync.Metrics on its own registry so that several
// instances (one per test, one per app) never collide.
type Prometheus struct {
	registry *prometheus.Registry

	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	remoteFailures *prometheus.CounterVec
	degraded       *prometheus.CounterVec
	searchSkipped  prometheus.Counter
}

var _ fitsync.Metrics = (*Prometheus)(nil)

func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Prometheus{
		registry: reg,
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Local cache reads that returned a usable snapshot, by key",
		}, []string{"key"}),
		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Local cache reads that found nothing usable, by key",
		}, []string{"key"}),
		remoteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_failures_total",
			Help:      "Remote operations that returned an error, by operation",
		}, []string{"op"}),
		degraded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_total",
			Help:      "Failures swallowed into an empty result, by operation",
		}, []string{"op"}),
		searchSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_skipped_total",
			Help:      "User searches skipped because the term was too short",
		}),
	}
}

func (p *Prometheus) CacheHit(key string)     { p.cacheHits.WithLabelValues(key).Inc() }
func (p *Prometheus) CacheMiss(key string)    { p.cacheMisses.WithLabelValues(key).Inc() }
func (p *Prometheus) RemoteFailure(op string) { p.remoteFailures.WithLabelValues(op).Inc() }
func (p *Prometheus) Degraded(op string)      { p.degraded.WithLabelValues(op).Inc() }
func (p *Prometheus) SearchSkipped()          { p.searchSkipped.Inc() }

// Registry returns the registry the counters are registered on.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Sample is one counter value with its labels flattened into Name, e.g.
// `fitsync_cache_hits_total{key="profile_cache"}`.
type Sample struct {
	Name  string
	Value float64
}

// Snapshot gathers every counter that has been touched, sorted by name.
func (p *Prometheus) Snapshot() ([]Sample, error) {
	families, err := p.registry.Gather()
	if err != nil {
		return nil, err
	}
	var out []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			out = append(out, Sample{
				Name:  sampleName(mf.GetName(), m.GetLabel()),
				Value: m.GetCounter().GetValue(),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func sampleName(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.GetName()+`="`+l.GetValue()+`"`)
	}
	return name + "{" + strings.Join(parts, ",") + "}"
}
