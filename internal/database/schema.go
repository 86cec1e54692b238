package database

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"fitsync-go/internal/fitsync"
)

// kind is how a column's values are stored and returned.
type kind int

const (
	kindText kind = iota
	kindInt
	kindReal
	kindBool // INTEGER 0/1
	kindTime // TEXT, timeLayout in UTC
	kindList // TEXT holding a JSON array of strings
)

// timeLayout has a fixed-width fraction so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type column struct {
	name string
	kind kind
}

type table struct {
	columns []column
	byName  map[string]kind
}

func newTable(cols ...column) table {
	t := table{columns: cols, byName: make(map[string]kind, len(cols))}
	for _, c := range cols {
		t.byName[c.name] = c.kind
	}
	return t
}

func (t table) has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

func (t table) names() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.name
	}
	return out
}

// tables mirrors migrations/files. Only these tables and columns are
// addressable through the store.
var tables = map[string]table{
	fitsync.TableProfiles: newTable(
		column{"id", kindText},
		column{"display_name", kindText},
		column{"bio", kindText},
		column{"avatar_url", kindText},
		column{"username", kindText},
		column{"badges", kindList},
		column{"is_private", kindBool},
		column{"created_at", kindTime},
		column{"updated_at", kindTime},
	),
	fitsync.TableCrewMembers: newTable(
		column{"id", kindText},
		column{"requester_id", kindText},
		column{"receiver_id", kindText},
		column{"status", kindText},
		column{"created_at", kindTime},
	),
	fitsync.TableExercises: newTable(
		column{"id", kindText},
		column{"name", kindText},
		column{"muscle_group", kindText},
		column{"is_custom", kindBool},
		column{"created_by", kindText},
		column{"created_at", kindTime},
	),
	fitsync.TableWorkouts: newTable(
		column{"id", kindText},
		column{"user_id", kindText},
		column{"name", kindText},
		column{"date", kindTime},
		column{"notes", kindText},
		column{"created_at", kindTime},
	),
	fitsync.TableWorkoutExercises: newTable(
		column{"id", kindText},
		column{"workout_id", kindText},
		column{"exercise_id", kindText},
		column{"position", kindInt},
		column{"created_at", kindTime},
	),
	fitsync.TableSets: newTable(
		column{"id", kindText},
		column{"workout_exercise_id", kindText},
		column{"set_number", kindInt},
		column{"weight", kindReal},
		column{"reps", kindInt},
		column{"is_completed", kindBool},
		column{"completed_at", kindTime},
		column{"created_at", kindTime},
	),
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// encode converts a Row value into what the column stores.
func encode(k kind, v any) (any, error) {
	if v == nil {
		if k == kindList {
			return "[]", nil
		}
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return encode(k, nil)
		}
		return encode(k, rv.Elem().Interface())
	}

	switch k {
	case kindText:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	case kindInt:
		switch {
		case rv.CanInt():
			return rv.Int(), nil
		case rv.CanUint():
			return int64(rv.Uint()), nil
		case rv.CanFloat() && rv.Float() == float64(int64(rv.Float())):
			return int64(rv.Float()), nil
		}
	case kindReal:
		switch {
		case rv.CanFloat():
			return rv.Float(), nil
		case rv.CanInt():
			return float64(rv.Int()), nil
		case rv.CanUint():
			return float64(rv.Uint()), nil
		}
	case kindBool:
		if rv.Kind() == reflect.Bool {
			if rv.Bool() {
				return int64(1), nil
			}
			return int64(0), nil
		}
	case kindTime:
		switch t := v.(type) {
		case time.Time:
			return formatTime(t), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, fmt.Errorf("parsing time %q: %w", t, err)
			}
			return formatTime(parsed), nil
		}
	case kindList:
		if rv.Kind() == reflect.Slice {
			if rv.Len() == 0 {
				return "[]", nil
			}
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			return string(b), nil
		}
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}

// decode converts a scanned column value into its Row form.
func decode(k kind, v any) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		if k == kindList {
			return []string{}, nil
		}
		return nil, nil
	}

	switch k {
	case kindInt:
		if f, ok := v.(float64); ok {
			return int64(f), nil
		}
	case kindReal:
		if i, ok := v.(int64); ok {
			return float64(i), nil
		}
	case kindBool:
		if i, ok := v.(int64); ok {
			return i != 0, nil
		}
	case kindTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, fmt.Errorf("parsing stored time %q: %w", t, err)
			}
			return parsed.UTC(), nil
		}
	case kindList:
		if s, ok := v.(string); ok {
			out := []string{}
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, fmt.Errorf("parsing stored list: %w", err)
			}
			return out, nil
		}
	}
	return v, nil
}
