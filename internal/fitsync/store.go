package fitsync

import "context"

// Table names in the remote store.
const (
	TableProfiles         = "profiles"
	TableCrewMembers      = "crew_members"
	TableExercises        = "exercises"
	TableWorkouts         = "workouts"
	TableWorkoutExercises = "workout_exercises"
	TableSets             = "sets"
)

// ProcSearchNewCrew is the fuzzy user search procedure.
const ProcSearchNewCrew = "search_new_crew"

// Row is one record as exchanged with the remote store, keyed by column.
type Row map[string]any

// RemoteStore is the queryable record store that holds the source of truth.
// Every failure is returned as a *RemoteError.
type RemoteStore interface {
	// Select returns all rows matching q, in q.Order.
	Select(ctx context.Context, q Query) ([]Row, error)

	// Single returns exactly one row. Zero or several matches fail with
	// CodeNoRows.
	Single(ctx context.Context, q Query) (Row, error)

	// MaybeSingle returns the only matching row, or nil when none match.
	MaybeSingle(ctx context.Context, q Query) (Row, error)

	// Insert creates a row and returns it as stored.
	Insert(ctx context.Context, table string, row Row) (Row, error)

	// Update applies patch to the single row matching filters and returns it.
	Update(ctx context.Context, table string, patch Row, filters ...Filter) (Row, error)

	// Upsert inserts row, or when conflictKey collides, updates only the
	// columns present in row. Columns absent from row keep their stored value.
	Upsert(ctx context.Context, table string, row Row, conflictKey string) (Row, error)

	// Delete removes every row matching filters. At least one filter is required.
	Delete(ctx context.Context, table string, filters ...Filter) error

	// Call runs a stored procedure.
	Call(ctx context.Context, procedure string, args Row) ([]Row, error)
}

// FilterOp is a filter operator.
type FilterOp string

const (
	OpEq FilterOp = "eq"
	OpIn FilterOp = "in"
	OpOr FilterOp = "or"
)

// Filter restricts the rows an operation touches.
type Filter struct {
	Op     FilterOp
	Column string
	Value  any      // OpEq; nil matches NULL
	Values []any    // OpIn
	Any    []Filter // OpOr
}

// Eq matches rows where column equals value.
func Eq(column string, value any) Filter {
	return Filter{Op: OpEq, Column: column, Value: value}
}

// In matches rows where column is one of values. An empty list matches nothing.
func In[T any](column string, values []T) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Filter{Op: OpIn, Column: column, Values: vs}
}

// Or matches rows satisfying any of filters.
func Or(filters ...Filter) Filter {
	return Filter{Op: OpOr, Any: filters}
}

// Order sorts a selection.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a selection.
type Query struct {
	Table   string
	Columns []string // empty selects every column
	Filters []Filter
	Order   []Order
	Limit   int // 0 means unlimited
}
