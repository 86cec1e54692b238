package fitsync

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultFreshness is how long a cached catalog is served without a refetch.
const DefaultFreshness = 24 * time.Hour

// CatalogState is what a presentation layer renders for the exercise catalog.
// Fetch failures never surface here; they degrade to an empty collection.
type CatalogState struct {
	Exercises []Exercise
	Loading   bool
}

// Catalog keeps the exercise catalog: global entries plus the viewer's
// custom ones.
type Catalog struct {
	deps      Deps
	h         *handle
	freshness time.Duration
	flight    singleflight.Group

	// guarded by h.mu
	exercises []Exercise
}

// NewCatalog creates a catalog accessor. A non-positive freshness uses
// DefaultFreshness.
func NewCatalog(deps Deps, freshness time.Duration) *Catalog {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Catalog{deps: deps.withDefaults(), h: newHandle(), freshness: freshness}
}

// State returns a snapshot of the catalog.
func (c *Catalog) State() CatalogState {
	var s CatalogState
	c.h.read(func(loading bool) {
		s = CatalogState{Exercises: append([]Exercise(nil), c.exercises...), Loading: loading}
	})
	return s
}

// Watch registers fn to run after each change.
func (c *Catalog) Watch(fn func(CatalogState)) {
	c.h.watch(func() { fn(c.State()) })
}

// Close stops the accessor. The shared fetch is canceled with it.
func (c *Catalog) Close() { c.h.close() }

// owner is the user whose custom exercises are included. Signed-out viewers
// see only global entries.
func (c *Catalog) owner() string {
	id, _ := c.deps.Identity.CurrentUserID()
	return id
}

// Load serves the cached catalog while it is fresh. Otherwise it paints any
// cached copy and refetches.
func (c *Catalog) Load(ctx context.Context) error {
	if c.h.isClosed() {
		return ErrClosed
	}
	owner := c.owner()

	fresh, err := c.deps.Cache.Fresh(ExercisesCacheKey, c.freshness)
	if err != nil {
		c.deps.Logger.Warn("reading catalog stamp", "err", err)
	}
	if fresh {
		var cached []Exercise
		hit, err := c.deps.Cache.Read(ExercisesCacheKey, owner, &cached)
		if err != nil {
			c.deps.Logger.Warn("reading cached catalog", "err", err)
		}
		if hit {
			c.h.commit(c.h.token(), true, func() { c.exercises = cached })
			c.deps.Logger.Debug("serving fresh catalog from cache", "count", len(cached))
			return nil
		}
	}

	ctx, cancel := c.h.bind(ctx)
	defer cancel()
	token := c.h.startLoad()
	defer c.h.endLoad()

	var g errgroup.Group
	g.Go(func() error {
		var cached []Exercise
		if hit, _ := c.deps.Cache.Read(ExercisesCacheKey, owner, &cached); hit {
			c.h.commit(token, false, func() { c.exercises = cached })
		}
		return nil
	})
	g.Go(func() error {
		c.fetch(ctx, token, owner)
		return nil
	})
	return g.Wait()
}

// Refresh refetches the catalog, ignoring the cache.
func (c *Catalog) Refresh(ctx context.Context) error {
	if c.h.isClosed() {
		return ErrClosed
	}
	ctx, cancel := c.h.bind(ctx)
	defer cancel()
	token := c.h.startLoad()
	defer c.h.endLoad()
	c.fetch(ctx, token, c.owner())
	return nil
}

// reload refetches after a write. It never joins a fetch that may have read
// the store before the write.
func (c *Catalog) reload(ctx context.Context) error {
	c.flight.Forget(c.owner())
	return c.Refresh(ctx)
}

// fetch queries the catalog, sharing one query among concurrent callers for
// the same owner. The query runs on the accessor's context, so a caller that
// gives up leaves it running for the others and commits nothing.
func (c *Catalog) fetch(ctx context.Context, token uint64, owner string) {
	ch := c.flight.DoChan(owner, func() (any, error) {
		return c.query(c.h.ctx, owner)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		c.deps.Logger.Debug("catalog fetch abandoned", "user_id", owner, "err", ctx.Err())
		return
	}
	v, err := res.Val, res.Err
	if err != nil {
		c.deps.degraded("catalog.load", err, "user_id", owner)
		c.h.commit(token, true, func() { c.exercises = []Exercise{} })
		return
	}
	exercises := v.([]Exercise)
	if !c.h.commit(token, true, func() { c.exercises = exercises }) {
		return
	}
	if err := c.deps.Cache.Write(ExercisesCacheKey, owner, exercises); err != nil {
		c.deps.Logger.Warn("writing catalog cache", "err", err)
		return
	}
	if err := c.deps.Cache.WriteStamp(ExercisesCacheKey, c.deps.Clock.Now()); err != nil {
		c.deps.Logger.Warn("writing catalog stamp", "err", err)
	}
}

func (c *Catalog) query(ctx context.Context, owner string) ([]Exercise, error) {
	visible := Eq("is_custom", false)
	if owner != "" {
		visible = Or(visible, Eq("created_by", owner))
	}
	rows, err := c.deps.Store.Select(ctx, Query{
		Table:   TableExercises,
		Filters: []Filter{visible},
		Order:   []Order{{Column: "name"}},
	})
	if err != nil {
		return nil, err
	}
	return decodeRows[Exercise](rows)
}

// Exercises returns the whole catalog.
func (c *Catalog) Exercises() []Exercise {
	return c.State().Exercises
}

// Search returns exercises whose name contains query, ignoring case. A blank
// query returns everything.
func (c *Catalog) Search(query string) []Exercise {
	all := c.Exercises()
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all
	}
	var out []Exercise
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.Name), q) {
			out = append(out, e)
		}
	}
	return out
}

// ByCategory groups the catalog by muscle group.
func (c *Catalog) ByCategory() map[string][]Exercise {
	out := make(map[string][]Exercise)
	for _, e := range c.Exercises() {
		out[e.MuscleGroup] = append(out[e.MuscleGroup], e)
	}
	return out
}

// Categories lists the distinct muscle groups, sorted.
func (c *Catalog) Categories() []string {
	groups := c.ByCategory()
	out := make([]string, 0, len(groups))
	for g := range groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Get returns the exercise with id, or nil.
func (c *Catalog) Get(id string) *Exercise {
	var found *Exercise
	c.h.read(func(bool) {
		for i := range c.exercises {
			if c.exercises[i].ID == id {
				e := c.exercises[i]
				found = &e
				return
			}
		}
	})
	return found
}

// CreateCustom adds a custom exercise owned by the viewer, then refetches.
func (c *Catalog) CreateCustom(ctx context.Context, in ExerciseInput) (*Exercise, error) {
	if c.h.isClosed() {
		return nil, ErrClosed
	}
	userID, err := c.deps.viewer()
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	ctx, cancel := c.h.bind(ctx)
	defer cancel()

	row, err := c.deps.Store.Insert(ctx, TableExercises, Row{
		"id":           c.deps.IDs.New(),
		"name":         strings.TrimSpace(in.Name),
		"muscle_group": strings.TrimSpace(in.MuscleGroup),
		"is_custom":    true,
		"created_by":   userID,
	})
	if err != nil {
		c.deps.remoteFailed("catalog.create", err, "user_id", userID)
		return nil, err
	}
	var created Exercise
	if err := decodeRow(row, &created); err != nil {
		return nil, err
	}
	c.deps.Logger.Info("custom exercise created", "user_id", userID, "exercise_id", created.ID)
	return &created, c.reload(ctx)
}

// UpdateCustom edits one of the viewer's custom exercises, then refetches.
func (c *Catalog) UpdateCustom(ctx context.Context, id string, upd ExerciseUpdate) (*Exercise, error) {
	if c.h.isClosed() {
		return nil, ErrClosed
	}
	userID, err := c.deps.viewer()
	if err != nil {
		return nil, err
	}
	if err := validateInput(upd); err != nil {
		return nil, err
	}
	patch := upd.row()
	if len(patch) == 0 {
		return nil, validationFailed("exercise update has no fields")
	}

	ctx, cancel := c.h.bind(ctx)
	defer cancel()

	row, err := c.deps.Store.Update(ctx, TableExercises, patch, c.ownedBy(id, userID)...)
	if err != nil {
		c.deps.remoteFailed("catalog.update", err, "user_id", userID, "exercise_id", id)
		return nil, err
	}
	var updated Exercise
	if err := decodeRow(row, &updated); err != nil {
		return nil, err
	}
	return &updated, c.reload(ctx)
}

// DeleteCustom removes one of the viewer's custom exercises, then refetches.
func (c *Catalog) DeleteCustom(ctx context.Context, id string) error {
	if c.h.isClosed() {
		return ErrClosed
	}
	userID, err := c.deps.viewer()
	if err != nil {
		return err
	}

	ctx, cancel := c.h.bind(ctx)
	defer cancel()

	if err := c.deps.Store.Delete(ctx, TableExercises, c.ownedBy(id, userID)...); err != nil {
		c.deps.remoteFailed("catalog.delete", err, "user_id", userID, "exercise_id", id)
		return err
	}
	c.deps.Logger.Info("custom exercise deleted", "user_id", userID, "exercise_id", id)
	return c.reload(ctx)
}

func (c *Catalog) ownedBy(id, userID string) []Filter {
	return []Filter{Eq("id", id), Eq("created_by", userID), Eq("is_custom", true)}
}

// ClearCache drops the cached catalog and its stamp and empties state.
func (c *Catalog) ClearCache() error {
	c.h.commit(c.h.token(), true, func() { c.exercises = nil })
	if err := c.deps.Cache.Remove(ExercisesCacheKey); err != nil {
		c.deps.Logger.Error("clearing catalog cache", "err", err)
		return err
	}
	return nil
}
