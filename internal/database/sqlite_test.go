package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fitsync-go/internal/fitsync"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// newTestStore creates a migrated in-memory store on a fixed clock.
func newTestStore(t *testing.T) (*SQLiteStore, *fixedClock) {
	t.Helper()

	clock := &fixedClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	s, err := NewSQLiteStore(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func remoteCode(t *testing.T, err error) string {
	t.Helper()
	var re *fitsync.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("error %v (%T) is not a *RemoteError", err, err)
	}
	return re.Code
}

func TestSQLiteStore_InsertAndSingle(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the stored row with defaults", func(t *testing.T) {
		s, _ := newTestStore(t)

		row, err := s.Insert(ctx, fitsync.TableProfiles, fitsync.Row{"id": "u1", "display_name": "Ana"})
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if row["display_name"] != "Ana" {
			t.Errorf("display_name = %v, want Ana", row["display_name"])
		}
		if row["bio"] != "" {
			t.Errorf("bio = %v, want empty default", row["bio"])
		}
		if row["is_private"] != false {
			t.Errorf("is_private = %v, want false", row["is_private"])
		}
		badges, ok := row["badges"].([]string)
		if !ok || len(badges) != 0 {
			t.Errorf("badges = %#v, want empty []string", row["badges"])
		}
		if row["username"] != nil {
			t.Errorf("username = %v, want nil", row["username"])
		}
		if created, ok := row["created_at"].(time.Time); !ok || !created.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)) {
			t.Errorf("created_at = %v, want store clock time", row["created_at"])
		}
	})

	t.Run("single on a missing row is the no-rows sentinel", func(t *testing.T) {
		s, _ := newTestStore(t)

		_, err := s.Single(ctx, fitsync.Query{
			Table:   fitsync.TableProfiles,
			Filters: []fitsync.Filter{fitsync.Eq("id", "nobody")},
		})
		if !fitsync.IsNoRows(err) {
			t.Fatalf("Single() error = %v, want no-rows sentinel", err)
		}
	})

	t.Run("maybe single on a missing row is nil without error", func(t *testing.T) {
		s, _ := newTestStore(t)

		row, err := s.MaybeSingle(ctx, fitsync.Query{
			Table:   fitsync.TableProfiles,
			Filters: []fitsync.Filter{fitsync.Eq("id", "nobody")},
		})
		if err != nil {
			t.Fatalf("MaybeSingle() error = %v", err)
		}
		if row != nil {
			t.Errorf("MaybeSingle() = %v, want nil", row)
		}
	})

	t.Run("duplicate key is a unique violation", func(t *testing.T) {
		s, _ := newTestStore(t)

		if _, err := s.Insert(ctx, fitsync.TableProfiles, fitsync.Row{"id": "u1"}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		_, err := s.Insert(ctx, fitsync.TableProfiles, fitsync.Row{"id": "u1"})
		if got := remoteCode(t, err); got != "23505" {
			t.Errorf("code = %q, want 23505", got)
		}
	})
}

func TestSQLiteStore_Select(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for _, row := range []fitsync.Row{
		{"id": "c1", "requester_id": "u1", "receiver_id": "u2", "status": "pending"},
		{"id": "c2", "requester_id": "u3", "receiver_id": "u1", "status": "accepted"},
		{"id": "c3", "requester_id": "u2", "receiver_id": "u3", "status": "pending"},
	} {
		if _, err := s.Insert(ctx, fitsync.TableCrewMembers, row); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	tests := []struct {
		name    string
		filters []fitsync.Filter
		want    []string
	}{
		{
			name:    "or across columns",
			filters: []fitsync.Filter{fitsync.Or(fitsync.Eq("requester_id", "u1"), fitsync.Eq("receiver_id", "u1"))},
			want:    []string{"c1", "c2"},
		},
		{
			name:    "in list",
			filters: []fitsync.Filter{fitsync.In("id", []string{"c3", "c1"})},
			want:    []string{"c1", "c3"},
		},
		{
			name:    "empty in list matches nothing",
			filters: []fitsync.Filter{fitsync.In("id", []string{})},
			want:    nil,
		},
		{
			name:    "conjunction",
			filters: []fitsync.Filter{fitsync.Eq("status", "pending"), fitsync.Eq("receiver_id", "u3")},
			want:    []string{"c3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := s.Select(ctx, fitsync.Query{
				Table:   fitsync.TableCrewMembers,
				Filters: tt.filters,
				Order:   []fitsync.Order{{Column: "id"}},
			})
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if len(rows) != len(tt.want) {
				t.Fatalf("Select() returned %d rows, want %d", len(rows), len(tt.want))
			}
			for i, id := range tt.want {
				if rows[i]["id"] != id {
					t.Errorf("rows[%d].id = %v, want %v", i, rows[i]["id"], id)
				}
			}
		})
	}

	t.Run("unknown table", func(t *testing.T) {
		_, err := s.Select(ctx, fitsync.Query{Table: "users"})
		if got := remoteCode(t, err); got != "42P01" {
			t.Errorf("code = %q, want 42P01", got)
		}
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := s.Select(ctx, fitsync.Query{
			Table:   fitsync.TableCrewMembers,
			Filters: []fitsync.Filter{fitsync.Eq("password", "x")},
		})
		if got := remoteCode(t, err); got != "42703" {
			t.Errorf("code = %q, want 42703", got)
		}
	})

	t.Run("projection and limit", func(t *testing.T) {
		rows, err := s.Select(ctx, fitsync.Query{
			Table:   fitsync.TableCrewMembers,
			Columns: []string{"id"},
			Order:   []fitsync.Order{{Column: "id", Desc: true}},
			Limit:   1,
		})
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if len(rows) != 1 || rows[0]["id"] != "c3" || len(rows[0]) != 1 {
			t.Errorf("Select() = %v, want only {id: c3}", rows)
		}
	})
}

func TestSQLiteStore_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("merges only supplied columns", func(t *testing.T) {
		s, clock := newTestStore(t)

		if _, err := s.Upsert(ctx, fitsync.TableProfiles, fitsync.Row{
			"id": "u1", "display_name": "Ana", "bio": "squats",
		}, "id"); err != nil {
			t.Fatalf("first Upsert() error = %v", err)
		}
		clock.advance(time.Hour)

		row, err := s.Upsert(ctx, fitsync.TableProfiles, fitsync.Row{"id": "u1", "bio": "deadlifts"}, "id")
		if err != nil {
			t.Fatalf("second Upsert() error = %v", err)
		}
		if row["display_name"] != "Ana" {
			t.Errorf("display_name = %v, want Ana kept", row["display_name"])
		}
		if row["bio"] != "deadlifts" {
			t.Errorf("bio = %v, want deadlifts", row["bio"])
		}
		if updated, ok := row["updated_at"].(time.Time); !ok || !updated.Equal(clock.Now()) {
			t.Errorf("updated_at = %v, want %v", row["updated_at"], clock.Now())
		}
		if created, ok := row["created_at"].(time.Time); !ok || created.Equal(clock.Now()) {
			t.Errorf("created_at = %v, want original insert time", row["created_at"])
		}
	})

	t.Run("stores string lists", func(t *testing.T) {
		s, _ := newTestStore(t)

		row, err := s.Upsert(ctx, fitsync.TableProfiles, fitsync.Row{
			"id": "u1", "badges": []string{"first-workout", "streak-7"},
		}, "id")
		if err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		badges, _ := row["badges"].([]string)
		if len(badges) != 2 || badges[0] != "first-workout" || badges[1] != "streak-7" {
			t.Errorf("badges = %#v", row["badges"])
		}
	})

	t.Run("missing conflict column", func(t *testing.T) {
		s, _ := newTestStore(t)

		_, err := s.Upsert(ctx, fitsync.TableProfiles, fitsync.Row{"bio": "x"}, "id")
		if err == nil {
			t.Fatal("Upsert() expected error")
		}
	})
}

func TestSQLiteStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the matching row", func(t *testing.T) {
		s, _ := newTestStore(t)
		if _, err := s.Insert(ctx, fitsync.TableCrewMembers, fitsync.Row{
			"id": "c1", "requester_id": "u1", "receiver_id": "u2", "status": "pending",
		}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		row, err := s.Update(ctx, fitsync.TableCrewMembers, fitsync.Row{"status": "accepted"}, fitsync.Eq("id", "c1"))
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if row["status"] != "accepted" {
			t.Errorf("status = %v, want accepted", row["status"])
		}
	})

	t.Run("no match is the no-rows sentinel", func(t *testing.T) {
		s, _ := newTestStore(t)

		_, err := s.Update(ctx, fitsync.TableCrewMembers, fitsync.Row{"status": "accepted"}, fitsync.Eq("id", "nope"))
		if !fitsync.IsNoRows(err) {
			t.Errorf("Update() error = %v, want no-rows sentinel", err)
		}
	})

	t.Run("several matches are rolled back", func(t *testing.T) {
		s, _ := newTestStore(t)
		for _, id := range []string{"c1", "c2"} {
			if _, err := s.Insert(ctx, fitsync.TableCrewMembers, fitsync.Row{
				"id": id, "requester_id": "u1", "receiver_id": "u-" + id, "status": "pending",
			}); err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
		}

		_, err := s.Update(ctx, fitsync.TableCrewMembers, fitsync.Row{"status": "accepted"}, fitsync.Eq("requester_id", "u1"))
		if !fitsync.IsNoRows(err) {
			t.Fatalf("Update() error = %v, want no-rows sentinel", err)
		}

		rows, err := s.Select(ctx, fitsync.Query{
			Table:   fitsync.TableCrewMembers,
			Filters: []fitsync.Filter{fitsync.Eq("status", "accepted")},
		})
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("%d rows accepted, want 0 after rollback", len(rows))
		}
	})

	t.Run("check constraint", func(t *testing.T) {
		s, _ := newTestStore(t)
		if _, err := s.Insert(ctx, fitsync.TableCrewMembers, fitsync.Row{
			"id": "c1", "requester_id": "u1", "receiver_id": "u2",
		}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		_, err := s.Update(ctx, fitsync.TableCrewMembers, fitsync.Row{"status": "blocked"}, fitsync.Eq("id", "c1"))
		if got := remoteCode(t, err); got != "23514" {
			t.Errorf("code = %q, want 23514", got)
		}
	})
}

func TestSQLiteStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a filter", func(t *testing.T) {
		s, _ := newTestStore(t)
		if got := remoteCode(t, s.Delete(ctx, fitsync.TableCrewMembers)); got != "21000" {
			t.Errorf("code = %q, want 21000", got)
		}
	})

	t.Run("deletes matching rows", func(t *testing.T) {
		s, _ := newTestStore(t)
		if _, err := s.Insert(ctx, fitsync.TableCrewMembers, fitsync.Row{
			"id": "c1", "requester_id": "u1", "receiver_id": "u2",
		}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		if err := s.Delete(ctx, fitsync.TableCrewMembers, fitsync.Eq("id", "c1")); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		row, err := s.MaybeSingle(ctx, fitsync.Query{
			Table:   fitsync.TableCrewMembers,
			Filters: []fitsync.Filter{fitsync.Eq("id", "c1")},
		})
		if err != nil || row != nil {
			t.Errorf("MaybeSingle() = %v, %v; want nil, nil", row, err)
		}
	})
}

func TestSQLiteStore_SearchNewCrew(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for _, row := range []fitsync.Row{
		{"id": "u1", "username": "liftqueen", "display_name": "Ana Lift"},
		{"id": "u2", "username": "benchking", "display_name": "Ben"},
		{"id": "u3", "username": "hidden_lifter", "display_name": "Private", "is_private": true},
		{"id": "u4", "display_name": "Lifty McLift"},
		{"id": "u5", "username": "100%effort", "display_name": "Percent"},
	} {
		if _, err := s.Insert(ctx, fitsync.TableProfiles, row); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	tests := []struct {
		term string
		want []string
	}{
		{term: "LIFT", want: []string{"u1", "u4"}},
		{term: "king", want: []string{"u2"}},
		{term: "0%e", want: []string{"u5"}},
		{term: "zzz", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			rows, err := s.Call(ctx, fitsync.ProcSearchNewCrew, fitsync.Row{"search_term": tt.term})
			if err != nil {
				t.Fatalf("Call() error = %v", err)
			}
			got := map[string]bool{}
			for _, r := range rows {
				got[r["id"].(string)] = true
				if _, ok := r["bio"]; ok {
					t.Errorf("search returned non-summary column bio")
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Call() ids = %v, want %v", got, tt.want)
			}
			for _, id := range tt.want {
				if !got[id] {
					t.Errorf("missing %s in %v", id, got)
				}
			}
		})
	}

	t.Run("unknown procedure", func(t *testing.T) {
		_, err := s.Call(ctx, "drop_everything", nil)
		if got := remoteCode(t, err); got != "PGRST202" {
			t.Errorf("code = %q, want PGRST202", got)
		}
	})
}

func TestSQLiteStore_BackupTo(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if _, err := s.Insert(ctx, fitsync.TableProfiles, fitsync.Row{"id": "u1"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := s.BackupTo(dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	restored, err := NewSQLiteStore(dest, nil)
	if err != nil {
		t.Fatalf("opening backup: %v", err)
	}
	defer restored.Close()

	if _, err := restored.Single(ctx, fitsync.Query{
		Table:   fitsync.TableProfiles,
		Filters: []fitsync.Filter{fitsync.Eq("id", "u1")},
	}); err != nil {
		t.Errorf("Single() on backup error = %v", err)
	}
}
