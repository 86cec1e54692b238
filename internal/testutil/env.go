package testutil

import (
	"context"
	"testing"
	"time"

	"fitsync-go/internal/cache"
	"fitsync-go/internal/database"
	"fitsync-go/internal/fitsync"
	"fitsync-go/internal/metrics"
)

// NewTestStore creates a migrated in-memory SQLite store on clock. The store
// is closed when the test completes.
func NewTestStore(t *testing.T, clock fitsync.Clock) *database.SQLiteStore {
	t.Helper()

	s, err := database.NewSQLiteStore(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Env bundles a complete set of accessor dependencies backed by an
// in-memory store and cache.
type Env struct {
	DB       *database.SQLiteStore
	Store    *StubStore
	Local    *cache.MemoryStore
	Cache    *fitsync.CacheStore
	Clock    *StubClock
	IDs      *StubIDGenerator
	Identity *SwitchableIdentity
	Metrics  *metrics.Prometheus
}

// NewEnv creates an Env signed in as viewer. An empty viewer starts signed out.
func NewEnv(t *testing.T, viewer string) *Env {
	t.Helper()

	clock := FixedClock()
	db := NewTestStore(t, clock)
	local := cache.NewMemoryStore()
	m := metrics.NewPrometheus()
	return &Env{
		DB:       db,
		Store:    NewStubStore(db),
		Local:    local,
		Cache:    fitsync.NewCacheStore(local, clock, nil, m),
		Clock:    clock,
		IDs:      NewStubIDGenerator(""),
		Identity: NewSwitchableIdentity(viewer),
		Metrics:  m,
	}
}

// Deps returns accessor dependencies wired to the Env.
func (e *Env) Deps() fitsync.Deps {
	return fitsync.Deps{
		Store:    e.Store,
		Cache:    e.Cache,
		Identity: e.Identity,
		Clock:    e.Clock,
		IDs:      e.IDs,
		Metrics:  e.Metrics,
	}
}

// Counter returns the value of a metric sample, or 0 if it was never touched.
func (e *Env) Counter(t *testing.T, name string) float64 {
	t.Helper()
	samples, err := e.Metrics.Snapshot()
	if err != nil {
		t.Fatalf("metrics snapshot: %v", err)
	}
	for _, s := range samples {
		if s.Name == name {
			return s.Value
		}
	}
	return 0
}

// Insert writes row directly to the backing store, bypassing the stub, and
// advances the clock so consecutive inserts get distinct created_at values.
func (e *Env) Insert(t *testing.T, table string, row fitsync.Row) fitsync.Row {
	t.Helper()
	got, err := e.DB.Insert(context.Background(), table, row)
	if err != nil {
		t.Fatalf("seeding %s: %v", table, err)
	}
	e.Clock.Advance(time.Second)
	return got
}

// SeedProfile inserts a public profile.
func (e *Env) SeedProfile(t *testing.T, id, displayName, username string) {
	t.Helper()
	row := fitsync.Row{"id": id, "display_name": displayName}
	if username != "" {
		row["username"] = username
	}
	e.Insert(t, fitsync.TableProfiles, row)
}

// SeedConnection inserts a crew record between requester and receiver.
func (e *Env) SeedConnection(t *testing.T, id, requester, receiver string, status fitsync.ConnectionStatus) {
	t.Helper()
	e.Insert(t, fitsync.TableCrewMembers, fitsync.Row{
		"id":           id,
		"requester_id": requester,
		"receiver_id":  receiver,
		"status":       string(status),
	})
}
