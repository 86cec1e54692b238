package database

import (
	"strings"
	"testing"
)

func TestDumpSchema(t *testing.T) {
	s, err := NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	schema, err := s.Schema()
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}

	for _, want := range []string{
		"CREATE TABLE crew_members",
		"CREATE TABLE exercises",
		"CREATE TABLE profiles",
		"CREATE TABLE sets",
		"CREATE TABLE workout_exercises",
		"CREATE TABLE workouts",
		"CREATE UNIQUE INDEX crew_members_pair",
	} {
		if !strings.Contains(schema, want) {
			t.Errorf("schema missing %q", want)
		}
	}
	if strings.Contains(schema, "schema_migrations") {
		t.Error("schema includes the migration bookkeeping table")
	}
	if strings.Index(schema, "CREATE INDEX") < strings.LastIndex(schema, "CREATE TABLE") {
		t.Error("indexes should follow all tables")
	}
}
