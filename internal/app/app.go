package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"fitsync-go/internal/cache"
	"fitsync-go/internal/config"
	"fitsync-go/internal/database"
	"fitsync-go/internal/encryption"
	"fitsync-go/internal/fitsync"
	"fitsync-go/internal/metrics"
)

// Options override collaborators that are otherwise derived from config.
// The zero value is what the CLI uses.
type Options struct {
	Clock       fitsync.Clock
	IDs         fitsync.IDGenerator
	StderrLevel slog.Level // records below this level go only to the log file
}

// FitApp is the application layer between the CLI and the accessors.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw CLI values, and releases everything on Close.
type FitApp struct {
	cfg       *config.Config
	store     *database.SQLiteStore
	local     fitsync.LocalStore
	encryptor fitsync.Encryptor
	metrics   *metrics.Prometheus
	logger    *slog.Logger
	clock     fitsync.Clock
	session   *Session
	closeLog  func() error
	deps      fitsync.Deps

	profiles *fitsync.Profiles
	catalog  *fitsync.Catalog
	crew     *fitsync.Crew
	workouts *fitsync.Workouts
	sets     *fitsync.Sets
}

// NewFitApp creates a fully wired FitApp from the given config.
// command identifies the CLI command being run (e.g. "profile show").
// The caller must call Close when done.
func NewFitApp(cfg *config.Config, command string, opts Options) (*FitApp, error) {
	clock := opts.Clock
	if clock == nil {
		clock = fitsync.RealClock{}
	}
	ids := opts.IDs
	if ids == nil {
		ids = fitsync.UUIDGenerator{}
	}

	freshness, err := cfg.FreshnessWindow()
	if err != nil {
		return nil, err
	}

	session := NewSession(command, clock.Now())
	logger, logFile, err := newLogger(cfg.LogDir, session.ID, opts.StderrLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	store, err := database.NewStoreFromConfig(cfg.Store, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating store: %w", err)
	}
	if err := store.CheckMigrations(); err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("store schema out of date: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Cache)
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	local, err := cache.NewLocalStoreFromConfig(cfg.Cache, enc, logger.With("component", "cache"))
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	m := metrics.NewPrometheus()
	log := &slogAdapter{l: logger}
	deps := fitsync.Deps{
		Store:    store,
		Cache:    fitsync.NewCacheStore(local, clock, log, m),
		Identity: fitsync.StaticIdentity(cfg.UserID),
		Logger:   log,
		Clock:    clock,
		IDs:      ids,
		Metrics:  m,
	}
	if cfg.Search.RatePerSecond > 0 {
		burst := cfg.Search.Burst
		if burst < 1 {
			burst = 1
		}
		deps.SearchLimiter = rate.NewLimiter(rate.Limit(cfg.Search.RatePerSecond), burst)
	}

	logger.Debug("session started", "command", command, "user_id", cfg.UserID, "store", cfg.Store.Type, "cache", cfg.Cache.Type)

	return &FitApp{
		cfg:       cfg,
		store:     store,
		local:     local,
		encryptor: enc,
		metrics:   m,
		logger:    logger,
		clock:     clock,
		session:   session,
		closeLog:  logFile.Close,
		deps:      deps,
		profiles:  fitsync.NewProfiles(deps),
		catalog:   fitsync.NewCatalog(deps, freshness),
		crew:      fitsync.NewCrew(deps),
		workouts:  fitsync.NewWorkouts(deps),
		sets:      fitsync.NewSets(deps),
	}, nil
}

// track marks the session failed when err is set and passes err through.
func (a *FitApp) track(err error) error {
	if err != nil {
		a.session.Fail()
	}
	return err
}

// Profile loads and returns the viewer's profile. A viewer without a profile
// gets nil and no error.
func (a *FitApp) Profile(ctx context.Context) (*fitsync.Profile, error) {
	if err := a.profiles.Load(ctx); err != nil {
		return nil, a.track(err)
	}
	return a.profiles.State().Profile, nil
}

// UpdateProfile merges upd into the viewer's profile.
func (a *FitApp) UpdateProfile(ctx context.Context, upd fitsync.ProfileUpdate) (*fitsync.Profile, error) {
	p, err := a.profiles.UpdateProfile(ctx, upd)
	return p, a.track(err)
}

// AddBadge awards badgeID to the viewer.
func (a *FitApp) AddBadge(ctx context.Context, badgeID string) (*fitsync.Profile, error) {
	p, err := a.profiles.AddBadge(ctx, badgeID)
	return p, a.track(err)
}

// RemoveBadge takes badgeID away from the viewer.
func (a *FitApp) RemoveBadge(ctx context.Context, badgeID string) (*fitsync.Profile, error) {
	p, err := a.profiles.RemoveBadge(ctx, badgeID)
	return p, a.track(err)
}

// CrewView is the viewer's relationships split by role.
type CrewView struct {
	Crew         []fitsync.CrewMember `json:"crew"`
	Requests     []fitsync.CrewMember `json:"requests"`
	SentRequests []fitsync.CrewMember `json:"sent_requests"`
}

// Crew loads the viewer's relationships.
func (a *FitApp) Crew(ctx context.Context) (*CrewView, error) {
	if err := a.crew.Load(ctx); err != nil {
		return nil, a.track(err)
	}
	s := a.crew.State()
	return &CrewView{Crew: s.Crew, Requests: s.Requests, SentRequests: s.SentRequests}, nil
}

// AddCrewMember sends a crew request to targetID.
func (a *FitApp) AddCrewMember(ctx context.Context, targetID string) (*fitsync.Connection, error) {
	c, err := a.crew.AddCrewMember(ctx, targetID)
	return c, a.track(err)
}

// AcceptCrewRequest accepts the pending request recordID.
func (a *FitApp) AcceptCrewRequest(ctx context.Context, recordID string) (*fitsync.Connection, error) {
	c, err := a.crew.AcceptCrewRequest(ctx, recordID)
	return c, a.track(err)
}

// RemoveCrewMember deletes the connection recordID.
func (a *FitApp) RemoveCrewMember(ctx context.Context, recordID string) error {
	return a.track(a.crew.RemoveCrewMember(ctx, recordID))
}

// SearchUsers finds users to send crew requests to.
func (a *FitApp) SearchUsers(ctx context.Context, term string) []fitsync.ProfileSummary {
	return a.crew.SearchUsers(ctx, term)
}

// Exercises loads the catalog and returns the entries matching query. An
// empty query returns everything.
func (a *FitApp) Exercises(ctx context.Context, query string) ([]fitsync.Exercise, error) {
	if err := a.catalog.Load(ctx); err != nil {
		return nil, a.track(err)
	}
	return a.catalog.Search(query), nil
}

// Categories loads the catalog and returns its muscle groups.
func (a *FitApp) Categories(ctx context.Context) ([]string, error) {
	if err := a.catalog.Load(ctx); err != nil {
		return nil, a.track(err)
	}
	return a.catalog.Categories(), nil
}

// CreateExercise adds a custom exercise.
func (a *FitApp) CreateExercise(ctx context.Context, in fitsync.ExerciseInput) (*fitsync.Exercise, error) {
	e, err := a.catalog.CreateCustom(ctx, in)
	return e, a.track(err)
}

// UpdateExercise edits a custom exercise.
func (a *FitApp) UpdateExercise(ctx context.Context, id string, upd fitsync.ExerciseUpdate) (*fitsync.Exercise, error) {
	e, err := a.catalog.UpdateCustom(ctx, id, upd)
	return e, a.track(err)
}

// DeleteExercise removes a custom exercise.
func (a *FitApp) DeleteExercise(ctx context.Context, id string) error {
	return a.track(a.catalog.DeleteCustom(ctx, id))
}

// Workouts loads the viewer's workouts. A non-nil on restricts them to
// that calendar day.
func (a *FitApp) Workouts(ctx context.Context, on *time.Time) ([]fitsync.Workout, error) {
	if err := a.workouts.Load(ctx); err != nil {
		return nil, a.track(err)
	}
	if on != nil {
		return a.workouts.GetWorkoutsByDate(*on), nil
	}
	return a.workouts.State().Workouts, nil
}

// CreateWorkout logs a workout.
func (a *FitApp) CreateWorkout(ctx context.Context, in fitsync.NewWorkout) (*fitsync.Workout, error) {
	w, err := a.workouts.CreateWorkout(ctx, in)
	return w, a.track(err)
}

// DeleteWorkout deletes one of the viewer's workouts.
func (a *FitApp) DeleteWorkout(ctx context.Context, id string) error {
	return a.track(a.workouts.DeleteWorkout(ctx, id))
}

// Sets loads the sets of a workout exercise.
func (a *FitApp) Sets(ctx context.Context, workoutExerciseID string) ([]fitsync.Set, error) {
	if err := a.sets.Load(ctx, workoutExerciseID); err != nil {
		return nil, a.track(err)
	}
	return a.sets.State().Sets, nil
}

// AddSet logs a set.
func (a *FitApp) AddSet(ctx context.Context, in fitsync.NewSet) (*fitsync.Set, error) {
	s, err := a.sets.AddSet(ctx, in)
	return s, a.track(err)
}

// findSet loads workoutExerciseID's sets and returns setID among them.
func (a *FitApp) findSet(ctx context.Context, workoutExerciseID, setID string) (*fitsync.Set, error) {
	sets, err := a.Sets(ctx, workoutExerciseID)
	if err != nil {
		return nil, err
	}
	for i := range sets {
		if sets[i].ID == setID {
			return &sets[i], nil
		}
	}
	return nil, a.track(fmt.Errorf("set %q in %q: %w", setID, workoutExerciseID, fitsync.ErrNotFound))
}

// ToggleSet flips the completion of setID, reading its current state from
// the store first.
func (a *FitApp) ToggleSet(ctx context.Context, workoutExerciseID, setID string) (*fitsync.Set, error) {
	cur, err := a.findSet(ctx, workoutExerciseID, setID)
	if err != nil {
		return nil, err
	}
	s, err := a.sets.ToggleSetComplete(ctx, setID, cur.IsCompleted)
	return s, a.track(err)
}

// DuplicateSet logs a copy of fromSetID, or a blank set when fromSetID is
// empty.
func (a *FitApp) DuplicateSet(ctx context.Context, workoutExerciseID, fromSetID string) (*fitsync.Set, error) {
	var source *fitsync.Set
	if fromSetID != "" {
		cur, err := a.findSet(ctx, workoutExerciseID, fromSetID)
		if err != nil {
			return nil, err
		}
		source = cur
	}
	s, err := a.sets.DuplicateSet(ctx, workoutExerciseID, source)
	return s, a.track(err)
}

// DeleteSet removes a set.
func (a *FitApp) DeleteSet(ctx context.Context, setID string) error {
	return a.track(a.sets.DeleteSet(ctx, setID))
}

// CacheStatus describes one cache key.
type CacheStatus struct {
	Key     string    `json:"key"`
	Present bool      `json:"present"`
	Locked  bool      `json:"locked,omitempty"`
	UserID  string    `json:"user_id,omitempty"`
	SavedAt time.Time `json:"saved_at,omitzero"`
	Bytes   int       `json:"bytes,omitempty"`
	Fresh   *bool     `json:"fresh,omitempty"`
}

// CacheStatus reports what the device cache holds.
func (a *FitApp) CacheStatus() ([]CacheStatus, error) {
	freshness, err := a.cfg.FreshnessWindow()
	if err != nil {
		return nil, err
	}

	var out []CacheStatus
	for _, key := range []string{fitsync.ProfileCacheKey, fitsync.ExercisesCacheKey} {
		st := CacheStatus{Key: key}
		entry, err := a.deps.Cache.Entry(key)
		switch {
		case errors.Is(err, cache.ErrLocked):
			st.Present, st.Locked = true, true
		case err != nil:
			return nil, a.track(err)
		case entry != nil:
			st.Present = true
			st.UserID = entry.UserID
			st.SavedAt = entry.SavedAt
			st.Bytes = len(entry.Data)
		}
		if key == fitsync.ExercisesCacheKey && !st.Locked {
			fresh, err := a.deps.Cache.Fresh(key, freshness)
			if err != nil {
				return nil, a.track(err)
			}
			st.Fresh = &fresh
		}
		out = append(out, st)
	}
	return out, nil
}

// ClearCache drops every cached snapshot. Used on sign-out.
func (a *FitApp) ClearCache() error {
	if err := a.profiles.ClearCache(); err != nil {
		return a.track(err)
	}
	return a.track(a.catalog.ClearCache())
}

// EncryptionConfigured reports whether a cache key pair exists.
func (a *FitApp) EncryptionConfigured() bool {
	return a.encryptor.IsConfigured()
}

// GenerateKey creates the cache key pair protected by passphrase. Snapshots
// sealed under an older key can no longer be read, so the cache is cleared.
func (a *FitApp) GenerateKey(passphrase string) error {
	if err := a.encryptor.GenerateKey(passphrase); err != nil {
		return a.track(fmt.Errorf("generating cache key: %w", err))
	}
	a.logger.Info("cache key generated")
	return a.ClearCache()
}

// Unlock opens an encrypted cache for reading. It is a no-op for
// unencrypted caches.
func (a *FitApp) Unlock(passphrase string) error {
	enc, ok := a.local.(*cache.EncryptedStore)
	if !ok {
		return nil
	}
	return a.track(enc.Unlock(passphrase))
}

// NeedsUnlock reports whether the cache is encrypted and still locked.
func (a *FitApp) NeedsUnlock() bool {
	enc, ok := a.local.(*cache.EncryptedStore)
	return ok && !enc.Unlocked()
}

// BackupStore writes a consistent copy of the record store to destPath.
func (a *FitApp) BackupStore(destPath string) error {
	if err := a.store.BackupTo(destPath); err != nil {
		return a.track(err)
	}
	a.logger.Info("store backed up", "dest", destPath)
	return nil
}

// StoreSchema returns the record store's schema as CREATE statements.
func (a *FitApp) StoreSchema() (string, error) {
	schema, err := a.store.Schema()
	return schema, a.track(err)
}

// Metrics returns the counters recorded during this session.
func (a *FitApp) Metrics() ([]metrics.Sample, error) {
	return a.metrics.Snapshot()
}

// Close cancels outstanding work and closes all resources.
func (a *FitApp) Close() error {
	a.profiles.Close()
	a.catalog.Close()
	a.crew.Close()
	a.workouts.Close()
	a.sets.Close()

	var firstErr error
	if err := a.local.Close(); err != nil {
		firstErr = fmt.Errorf("closing cache: %w", err)
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}

	a.logger.Info("session finished",
		"command", a.session.Command,
		"status", a.session.Status,
		"elapsed", a.session.Elapsed(a.clock.Now()))

	if a.closeLog != nil {
		a.closeLog()
	}
	return firstErr
}
