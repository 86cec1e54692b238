package fitsync

import "golang.org/x/time/rate"

// Deps carries the collaborators shared by every accessor.
type Deps struct {
	Store    RemoteStore
	Cache    *CacheStore
	Identity Identity
	Logger   Logger
	Clock    Clock
	IDs      IDGenerator
	Metrics  Metrics

	// SearchLimiter throttles remote user searches. Nil means unlimited.
	SearchLimiter *rate.Limiter
}

func (d Deps) withDefaults() Deps {
	if d.Identity == nil {
		d.Identity = StaticIdentity("")
	}
	if d.Logger == nil {
		d.Logger = NewNopLogger()
	}
	if d.Clock == nil {
		d.Clock = RealClock{}
	}
	if d.IDs == nil {
		d.IDs = UUIDGenerator{}
	}
	if d.Metrics == nil {
		d.Metrics = NopMetrics{}
	}
	if d.Cache == nil {
		d.Cache = NewCacheStore(discardLocal{}, d.Clock, d.Logger, d.Metrics)
	}
	return d
}

// viewer returns the signed-in user or ErrNotAuthenticated.
func (d Deps) viewer() (string, error) {
	id, ok := d.Identity.CurrentUserID()
	if !ok {
		return "", ErrNotAuthenticated
	}
	return id, nil
}

// remoteFailed logs and counts a remote failure.
func (d Deps) remoteFailed(op string, err error, args ...any) {
	d.Metrics.RemoteFailure(op)
	d.Logger.Error(op+" failed", append([]any{"kind", KindOf(err), "err", err}, args...)...)
}

// degraded logs and counts a swallowed failure on secondary data.
func (d Deps) degraded(op string, err error, args ...any) {
	d.Metrics.Degraded(op)
	d.Logger.Warn(op+" degraded to empty result", append([]any{"kind", KindDegraded, "err", err}, args...)...)
}
