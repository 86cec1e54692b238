package fitsync

// Metrics receives counters from the accessors. Implementations must be safe
// for concurrent use.
type Metrics interface {
	CacheHit(key string)
	CacheMiss(key string)
	RemoteFailure(op string)
	Degraded(op string)
	SearchSkipped()
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) CacheHit(string)      {}
func (NopMetrics) CacheMiss(string)     {}
func (NopMetrics) RemoteFailure(string) {}
func (NopMetrics) Degraded(string)      {}
func (NopMetrics) SearchSkipped()       {}
