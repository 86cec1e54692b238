package fitsync

import (
	"context"
	"strings"
	"time"
)

// WorkoutsState is the viewer's workouts, newest first.
type WorkoutsState struct {
	Workouts []Workout
	Loading  bool
	Error    error
}

// Workouts holds the viewer's workout collection. Creates and deletes update
// the collection as soon as the store confirms them, without a reload.
type Workouts struct {
	deps Deps
	h    *handle

	// guarded by h.mu
	workouts []Workout
	err      error
}

// NewWorkouts creates an empty workouts controller.
func NewWorkouts(deps Deps) *Workouts {
	return &Workouts{deps: deps.withDefaults(), h: newHandle()}
}

// State returns a deep copy of the collection, newest first.
func (w *Workouts) State() WorkoutsState {
	var s WorkoutsState
	w.h.read(func(loading bool) {
		s = WorkoutsState{Workouts: cloneWorkouts(w.workouts), Loading: loading, Error: w.err}
	})
	return s
}

func cloneWorkouts(in []Workout) []Workout {
	if in == nil {
		return nil
	}
	out := make([]Workout, len(in))
	for i, wo := range in {
		wo.Exercises = append([]WorkoutExercise(nil), wo.Exercises...)
		out[i] = wo
	}
	return out
}

// Watch calls fn with fresh state whenever the collection changes.
func (w *Workouts) Watch(fn func(WorkoutsState)) {
	w.h.watch(func() { fn(w.State()) })
}

// Close cancels pending calls. Later calls return ErrClosed.
func (w *Workouts) Close() { w.h.close() }

// Load fetches the viewer's workouts with their exercise associations.
func (w *Workouts) Load(ctx context.Context) error {
	if w.h.isClosed() {
		return ErrClosed
	}
	userID, err := w.deps.viewer()
	if err != nil {
		w.h.commit(w.h.token(), true, func() { w.workouts, w.err = nil, nil })
		return nil
	}

	ctx, cancel := w.h.bind(ctx)
	defer cancel()
	token := w.h.startLoad()
	defer w.h.endLoad()

	workouts, err := w.fetch(ctx, userID)
	if err != nil {
		w.deps.remoteFailed("workouts.load", err, "user_id", userID)
		w.h.commit(token, false, func() { w.err = err })
		return err
	}
	w.h.commit(token, true, func() { w.workouts, w.err = workouts, nil })
	return nil
}

func (w *Workouts) fetch(ctx context.Context, userID string) ([]Workout, error) {
	rows, err := w.deps.Store.Select(ctx, Query{
		Table:   TableWorkouts,
		Filters: []Filter{Eq("user_id", userID)},
		Order:   []Order{{Column: "date", Desc: true}, {Column: "created_at", Desc: true}},
	})
	if err != nil {
		return nil, err
	}
	workouts, err := decodeRows[Workout](rows)
	if err != nil || len(workouts) == 0 {
		return workouts, err
	}

	ids := make([]string, len(workouts))
	for i, wo := range workouts {
		ids[i] = wo.ID
	}
	rows, err = w.deps.Store.Select(ctx, Query{
		Table:   TableWorkoutExercises,
		Filters: []Filter{In("workout_id", ids)},
		Order:   []Order{{Column: "position"}},
	})
	if err != nil {
		return nil, err
	}
	links, err := decodeRows[WorkoutExercise](rows)
	if err != nil {
		return nil, err
	}
	byWorkout := make(map[string][]WorkoutExercise, len(workouts))
	for _, l := range links {
		byWorkout[l.WorkoutID] = append(byWorkout[l.WorkoutID], l)
	}
	for i := range workouts {
		workouts[i].Exercises = byWorkout[workouts[i].ID]
	}
	return workouts, nil
}

// CreateWorkout stores a workout and its exercises, then adds it to the
// collection. If storing an exercise fails the error is returned and the
// collection is left as it was.
func (w *Workouts) CreateWorkout(ctx context.Context, in NewWorkout) (*Workout, error) {
	if w.h.isClosed() {
		return nil, ErrClosed
	}
	userID, err := w.deps.viewer()
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	date := in.Date
	if date.IsZero() {
		date = w.deps.Clock.Now()
	}

	ctx, cancel := w.h.bind(ctx)
	defer cancel()

	row, err := w.deps.Store.Insert(ctx, TableWorkouts, Row{
		"id":      w.deps.IDs.New(),
		"user_id": userID,
		"name":    strings.TrimSpace(in.Name),
		"date":    date,
		"notes":   in.Notes,
	})
	if err != nil {
		w.deps.remoteFailed("workouts.create", err, "user_id", userID)
		return nil, err
	}
	var created Workout
	if err := decodeRow(row, &created); err != nil {
		return nil, err
	}

	created.Exercises = make([]WorkoutExercise, 0, len(in.ExerciseIDs))
	for i, exerciseID := range in.ExerciseIDs {
		row, err := w.deps.Store.Insert(ctx, TableWorkoutExercises, Row{
			"id":          w.deps.IDs.New(),
			"workout_id":  created.ID,
			"exercise_id": exerciseID,
			"position":    i,
		})
		if err != nil {
			w.deps.remoteFailed("workouts.create", err, "user_id", userID, "workout_id", created.ID, "exercise_id", exerciseID)
			return nil, err
		}
		var link WorkoutExercise
		if err := decodeRow(row, &link); err != nil {
			return nil, err
		}
		created.Exercises = append(created.Exercises, link)
	}

	w.h.patch(func() {
		w.workouts = append([]Workout{created}, without(w.workouts, created.ID)...)
	})
	w.deps.Logger.Info("workout created", "user_id", userID, "workout_id", created.ID, "exercises", len(created.Exercises))
	out := cloneWorkouts([]Workout{created})[0]
	return &out, nil
}

// DeleteWorkout deletes one of the viewer's workouts and drops it from the
// collection.
func (w *Workouts) DeleteWorkout(ctx context.Context, id string) error {
	if w.h.isClosed() {
		return ErrClosed
	}
	userID, err := w.deps.viewer()
	if err != nil {
		return err
	}

	ctx, cancel := w.h.bind(ctx)
	defer cancel()

	if err := w.deps.Store.Delete(ctx, TableWorkouts, Eq("id", id), Eq("user_id", userID)); err != nil {
		w.deps.remoteFailed("workouts.delete", err, "user_id", userID, "workout_id", id)
		return err
	}
	w.h.patch(func() { w.workouts = without(w.workouts, id) })
	w.deps.Logger.Info("workout deleted", "user_id", userID, "workout_id", id)
	return nil
}

// without returns workouts minus the one with id, in a new slice.
func without(workouts []Workout, id string) []Workout {
	kept := make([]Workout, 0, len(workouts))
	for _, wo := range workouts {
		if wo.ID != id {
			kept = append(kept, wo)
		}
	}
	return kept
}

// GetWorkoutsByDate returns the loaded workouts on the same calendar day as
// date, comparing year, month and day in date's location.
func (w *Workouts) GetWorkoutsByDate(date time.Time) []Workout {
	y, m, d := date.Date()
	var out []Workout
	for _, wo := range w.State().Workouts {
		wy, wm, wd := wo.Date.In(date.Location()).Date()
		if wy == y && wm == m && wd == d {
			out = append(out, wo)
		}
	}
	return out
}
