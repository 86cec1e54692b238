package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fitsync-go/internal/config"
	"fitsync-go/internal/fitsync"
	"fitsync-go/internal/testutil"
)

// newTestConfig returns a config backed by an in-memory store and cache,
// with logs under a temp dir.
func newTestConfig(t *testing.T, userID string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewConfig(userID, dir)
	cfg.Store = config.StoreConfig{Type: "memory"}
	cfg.Cache.Type = "memory"
	cfg.Cache.Encryption = "test"
	cfg.Search = config.SearchConfig{}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *FitApp {
	t.Helper()
	a, err := NewFitApp(cfg, "test", Options{
		Clock:       testutil.FixedClock(),
		IDs:         testutil.NewStubIDGenerator(""),
		StderrLevel: 100, // keep test output quiet
	})
	if err != nil {
		t.Fatalf("NewFitApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewFitApp_rejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "unknown store", mutate: func(c *config.Config) { c.Store.Type = "postgres" }},
		{name: "unknown cache", mutate: func(c *config.Config) { c.Cache.Type = "redis" }},
		{name: "unknown encryption", mutate: func(c *config.Config) { c.Cache.Encryption = "rot13" }},
		{name: "bad freshness", mutate: func(c *config.Config) { c.Catalog.Freshness = "later" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t, "u1")
			tt.mutate(cfg)
			if a, err := NewFitApp(cfg, "test", Options{StderrLevel: 100}); err == nil {
				a.Close()
				t.Fatal("NewFitApp() expected error")
			}
		})
	}
}

func TestFitApp_ProfileFlow(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, newTestConfig(t, "u1"))

	p, err := a.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p != nil {
		t.Fatalf("Profile() = %+v, want nil for a new user", p)
	}

	name := "Ada"
	if _, err := a.UpdateProfile(ctx, fitsync.ProfileUpdate{DisplayName: &name}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	p, err = a.AddBadge(ctx, "first-workout")
	if err != nil {
		t.Fatalf("AddBadge() error = %v", err)
	}
	if p.DisplayName != "Ada" || !p.HasBadge("first-workout") {
		t.Errorf("profile = %+v", p)
	}

	status, err := a.CacheStatus()
	if err != nil {
		t.Fatalf("CacheStatus() error = %v", err)
	}
	if len(status) != 2 {
		t.Fatalf("CacheStatus() returned %d keys, want 2", len(status))
	}
	if !status[0].Present || status[0].UserID != "u1" {
		t.Errorf("profile cache status = %+v", status[0])
	}

	if err := a.ClearCache(); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}
	status, _ = a.CacheStatus()
	if status[0].Present {
		t.Errorf("profile cache still present after ClearCache")
	}
}

func TestFitApp_Exercises(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, newTestConfig(t, "u1"))

	squats, err := a.Exercises(ctx, "squat")
	if err != nil {
		t.Fatalf("Exercises() error = %v", err)
	}
	if len(squats) != 2 {
		t.Errorf("Exercises(squat) = %d entries, want 2", len(squats))
	}

	custom, err := a.CreateExercise(ctx, fitsync.ExerciseInput{Name: "Sled Push", MuscleGroup: "legs"})
	if err != nil {
		t.Fatalf("CreateExercise() error = %v", err)
	}
	all, err := a.Exercises(ctx, "")
	if err != nil {
		t.Fatalf("Exercises() error = %v", err)
	}
	if len(all) != 25 {
		t.Errorf("Exercises() = %d entries, want 25", len(all))
	}

	cats, err := a.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if strings.Join(cats, ",") != "arms,back,chest,core,legs,shoulders" {
		t.Errorf("Categories() = %v", cats)
	}

	if err := a.DeleteExercise(ctx, custom.ID); err != nil {
		t.Fatalf("DeleteExercise() error = %v", err)
	}
	// Global entries are never deleted on behalf of a user.
	if err := a.DeleteExercise(ctx, "bench-press"); err != nil {
		t.Fatalf("DeleteExercise(global) error = %v", err)
	}
	all, _ = a.Exercises(ctx, "")
	if len(all) != 24 {
		t.Errorf("Exercises() after deletes = %d entries, want 24", len(all))
	}
}

func TestFitApp_WorkoutAndSets(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, newTestConfig(t, "u1"))

	w, err := a.CreateWorkout(ctx, fitsync.NewWorkout{Name: "Push day", ExerciseIDs: []string{"bench-press"}})
	if err != nil {
		t.Fatalf("CreateWorkout() error = %v", err)
	}
	weID := w.Exercises[0].ID

	first, err := a.AddSet(ctx, fitsync.NewSet{WorkoutExerciseID: weID, Weight: 60, Reps: 8})
	if err != nil {
		t.Fatalf("AddSet() error = %v", err)
	}

	toggled, err := a.ToggleSet(ctx, weID, first.ID)
	if err != nil {
		t.Fatalf("ToggleSet() error = %v", err)
	}
	if !toggled.IsCompleted || toggled.CompletedAt == nil {
		t.Errorf("ToggleSet() = %+v, want completed", toggled)
	}
	toggled, err = a.ToggleSet(ctx, weID, first.ID)
	if err != nil {
		t.Fatalf("second ToggleSet() error = %v", err)
	}
	if toggled.IsCompleted || toggled.CompletedAt != nil {
		t.Errorf("second ToggleSet() = %+v, want incomplete", toggled)
	}

	dup, err := a.DuplicateSet(ctx, weID, first.ID)
	if err != nil {
		t.Fatalf("DuplicateSet() error = %v", err)
	}
	if dup.SetNumber != 2 || dup.Weight != 60 || dup.Reps != 8 {
		t.Errorf("DuplicateSet() = %+v", dup)
	}
	blank, err := a.DuplicateSet(ctx, weID, "")
	if err != nil {
		t.Fatalf("DuplicateSet(blank) error = %v", err)
	}
	if blank.SetNumber != 3 || blank.Weight != 0 {
		t.Errorf("DuplicateSet(blank) = %+v", blank)
	}

	if _, err := a.ToggleSet(ctx, weID, "missing"); fitsync.KindOf(err) != fitsync.KindNotFound {
		t.Errorf("ToggleSet(missing) kind = %v, want not_found", fitsync.KindOf(err))
	}

	sets, err := a.Sets(ctx, weID)
	if err != nil {
		t.Fatalf("Sets() error = %v", err)
	}
	if len(sets) != 3 {
		t.Errorf("Sets() = %d, want 3", len(sets))
	}

	day := testutil.FixedClock().Now()
	workouts, err := a.Workouts(ctx, &day)
	if err != nil {
		t.Fatalf("Workouts() error = %v", err)
	}
	if len(workouts) != 1 {
		t.Errorf("Workouts(today) = %d, want 1", len(workouts))
	}

	if err := a.DeleteWorkout(ctx, w.ID); err != nil {
		t.Fatalf("DeleteWorkout() error = %v", err)
	}
	if workouts, _ := a.Workouts(ctx, nil); len(workouts) != 0 {
		t.Errorf("Workouts() after delete = %d, want 0", len(workouts))
	}
}

func TestFitApp_Crew(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, newTestConfig(t, "u1"))

	conn, err := a.AddCrewMember(ctx, "u2")
	if err != nil {
		t.Fatalf("AddCrewMember() error = %v", err)
	}
	if conn.Status != fitsync.StatusPending {
		t.Errorf("status = %q, want pending", conn.Status)
	}
	if _, err := a.AddCrewMember(ctx, ""); fitsync.KindOf(err) != fitsync.KindInvalid {
		t.Errorf("AddCrewMember(\"\") kind = %v, want invalid", fitsync.KindOf(err))
	}
	if got := a.SearchUsers(ctx, "ab"); len(got) != 0 {
		t.Errorf("SearchUsers(short) = %v, want empty", got)
	}
	if err := a.RemoveCrewMember(ctx, conn.ID); err != nil {
		t.Fatalf("RemoveCrewMember() error = %v", err)
	}
}

func TestFitApp_EncryptedCache(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t, "u1")
	cfg.Cache.Encrypted = true
	a := newTestApp(t, cfg)

	if a.EncryptionConfigured() {
		t.Fatal("EncryptionConfigured() = true before GenerateKey")
	}
	if err := a.GenerateKey("hunter2"); err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	name := "Ada"
	if _, err := a.UpdateProfile(ctx, fitsync.ProfileUpdate{DisplayName: &name}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if !a.NeedsUnlock() {
		t.Fatal("NeedsUnlock() = false before Unlock")
	}
	status, err := a.CacheStatus()
	if err != nil {
		t.Fatalf("CacheStatus() error = %v", err)
	}
	if !status[0].Present || !status[0].Locked {
		t.Errorf("locked status = %+v", status[0])
	}

	if err := a.Unlock("wrong"); err == nil {
		t.Fatal("Unlock(wrong) expected error")
	}
	if err := a.Unlock("hunter2"); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	status, err = a.CacheStatus()
	if err != nil {
		t.Fatalf("CacheStatus() error = %v", err)
	}
	if status[0].Locked || status[0].UserID != "u1" {
		t.Errorf("unlocked status = %+v", status[0])
	}
}

func TestFitApp_BackupStore(t *testing.T) {
	cfg := newTestConfig(t, "u1")
	cfg.Store = config.StoreConfig{Type: "sqlite", DataDir: filepath.Join(cfg.BaseDir, "db")}
	a := newTestApp(t, cfg)

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := a.BackupStore(dest); err != nil {
		t.Fatalf("BackupStore() error = %v", err)
	}
	if info, err := os.Stat(dest); err != nil || info.Size() == 0 {
		t.Fatalf("backup not written: %v", err)
	}

	schema, err := a.StoreSchema()
	if err != nil {
		t.Fatalf("StoreSchema() error = %v", err)
	}
	if !strings.Contains(schema, "CREATE TABLE workouts") {
		t.Errorf("StoreSchema() missing workouts table:\n%s", schema)
	}
}

func TestFitApp_MetricsAndSessionLog(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t, "")
	a, err := NewFitApp(cfg, "profile show", Options{Clock: testutil.FixedClock(), StderrLevel: 100})
	if err != nil {
		t.Fatalf("NewFitApp() error = %v", err)
	}

	if p, err := a.Profile(ctx); p != nil || err != nil {
		t.Errorf("Profile() signed out = %v, %v; want nil, nil", p, err)
	}
	name := "Ada"
	if _, err := a.UpdateProfile(ctx, fitsync.ProfileUpdate{DisplayName: &name}); fitsync.KindOf(err) != fitsync.KindNotAuthenticated {
		t.Errorf("UpdateProfile() signed out kind = %v", fitsync.KindOf(err))
	}
	if _, err := a.Metrics(); err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, "fitsync.log"))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	log := string(data)
	if !strings.Contains(log, "session finished") || !strings.Contains(log, "status=error") {
		t.Errorf("log missing failed session line:\n%s", log)
	}
	if !strings.Contains(log, "\t20240501T090000Z\t") {
		t.Errorf("log lines not tagged with session id:\n%s", log)
	}
}
