package fitsync

import (
	"context"
	"sort"
)

// SetsState is the loaded sets of one workout exercise, ordered by number.
type SetsState struct {
	WorkoutExerciseID string
	Sets              []Set
	Loading           bool
	Error             error
}

// Sets reads and writes the weight/reps entries of a workout exercise.
type Sets struct {
	deps Deps
	h    *handle

	// guarded by h.mu
	workoutExerciseID string
	sets              []Set
	err               error
}

// NewSets creates a sets accessor with no workout exercise loaded.
func NewSets(deps Deps) *Sets {
	return &Sets{deps: deps.withDefaults(), h: newHandle()}
}

// State returns the loaded sets, ordered by set number, and the workout
// exercise they belong to.
func (s *Sets) State() SetsState {
	var st SetsState
	s.h.read(func(loading bool) {
		st = SetsState{
			WorkoutExerciseID: s.workoutExerciseID,
			Sets:              append([]Set(nil), s.sets...),
			Loading:           loading,
			Error:             s.err,
		}
	})
	return st
}

// Watch calls fn after every load or mutation.
func (s *Sets) Watch(fn func(SetsState)) {
	s.h.watch(func() { fn(s.State()) })
}

// Close releases the accessor. Calls after Close return ErrClosed.
func (s *Sets) Close() { s.h.close() }

// Load fetches the sets of workoutExerciseID.
func (s *Sets) Load(ctx context.Context, workoutExerciseID string) error {
	if s.h.isClosed() {
		return ErrClosed
	}
	ctx, cancel := s.h.bind(ctx)
	defer cancel()
	token := s.h.startLoad()
	defer s.h.endLoad()

	sets, err := s.list(ctx, workoutExerciseID)
	if err != nil {
		s.deps.remoteFailed("sets.load", err, "workout_exercise_id", workoutExerciseID)
		s.h.commit(token, false, func() { s.err = err })
		return err
	}
	s.h.commit(token, true, func() {
		s.workoutExerciseID = workoutExerciseID
		s.sets = sets
		s.err = nil
	})
	return nil
}

func (s *Sets) list(ctx context.Context, workoutExerciseID string) ([]Set, error) {
	rows, err := s.deps.Store.Select(ctx, Query{
		Table:   TableSets,
		Filters: []Filter{Eq("workout_exercise_id", workoutExerciseID)},
		Order:   []Order{{Column: "set_number"}},
	})
	if err != nil {
		return nil, err
	}
	return decodeRows[Set](rows)
}

// nextSetNumber is one past the highest stored set number.
func (s *Sets) nextSetNumber(ctx context.Context, workoutExerciseID string) (int, error) {
	rows, err := s.deps.Store.Select(ctx, Query{
		Table:   TableSets,
		Columns: []string{"set_number"},
		Filters: []Filter{Eq("workout_exercise_id", workoutExerciseID)},
		Order:   []Order{{Column: "set_number", Desc: true}},
		Limit:   1,
	})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 1, nil
	}
	var last Set
	if err := decodeRow(rows[0], &last); err != nil {
		return 0, err
	}
	return last.SetNumber + 1, nil
}

// AddSet logs a new set after the last one of its workout exercise.
func (s *Sets) AddSet(ctx context.Context, in NewSet) (*Set, error) {
	if s.h.isClosed() {
		return nil, ErrClosed
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	ctx, cancel := s.h.bind(ctx)
	defer cancel()

	number, err := s.nextSetNumber(ctx, in.WorkoutExerciseID)
	if err != nil {
		s.deps.remoteFailed("sets.add", err, "workout_exercise_id", in.WorkoutExerciseID)
		return nil, err
	}
	row, err := s.deps.Store.Insert(ctx, TableSets, Row{
		"id":                  s.deps.IDs.New(),
		"workout_exercise_id": in.WorkoutExerciseID,
		"set_number":          number,
		"weight":              in.Weight,
		"reps":                in.Reps,
		"is_completed":        false,
		"completed_at":        nil,
	})
	if err != nil {
		s.deps.remoteFailed("sets.add", err, "workout_exercise_id", in.WorkoutExerciseID)
		return nil, err
	}
	var created Set
	if err := decodeRow(row, &created); err != nil {
		return nil, err
	}
	s.put(created)
	return &created, nil
}

// UpdateSet changes a set's weight or reps.
func (s *Sets) UpdateSet(ctx context.Context, id string, upd SetUpdate) (*Set, error) {
	if s.h.isClosed() {
		return nil, ErrClosed
	}
	if err := validateInput(upd); err != nil {
		return nil, err
	}
	patch := upd.row()
	if len(patch) == 0 {
		return nil, validationFailed("set update has no fields")
	}
	return s.update(ctx, "sets.update", id, patch)
}

// ToggleSetComplete flips a set's completion. Completing stamps completed_at
// with the current time and un-completing clears it, in the same write, so
// the two never disagree.
func (s *Sets) ToggleSetComplete(ctx context.Context, id string, currentlyComplete bool) (*Set, error) {
	if s.h.isClosed() {
		return nil, ErrClosed
	}
	patch := Row{"is_completed": !currentlyComplete, "completed_at": nil}
	if !currentlyComplete {
		patch["completed_at"] = s.deps.Clock.Now().UTC()
	}
	return s.update(ctx, "sets.toggle", id, patch)
}

func (s *Sets) update(ctx context.Context, op, id string, patch Row) (*Set, error) {
	ctx, cancel := s.h.bind(ctx)
	defer cancel()

	row, err := s.deps.Store.Update(ctx, TableSets, patch, Eq("id", id))
	if err != nil {
		s.deps.remoteFailed(op, err, "set_id", id)
		return nil, err
	}
	var updated Set
	if err := decodeRow(row, &updated); err != nil {
		return nil, err
	}
	s.put(updated)
	return &updated, nil
}

// DeleteSet removes a set. The remaining sets keep their numbers.
func (s *Sets) DeleteSet(ctx context.Context, id string) error {
	if s.h.isClosed() {
		return ErrClosed
	}
	ctx, cancel := s.h.bind(ctx)
	defer cancel()

	if err := s.deps.Store.Delete(ctx, TableSets, Eq("id", id)); err != nil {
		s.deps.remoteFailed("sets.delete", err, "set_id", id)
		return err
	}
	s.h.patch(func() {
		kept := make([]Set, 0, len(s.sets))
		for _, set := range s.sets {
			if set.ID != id {
				kept = append(kept, set)
			}
		}
		s.sets = kept
	})
	return nil
}

// DuplicateSet logs a new set seeded with source's weight and reps, or zeros
// when source is nil.
func (s *Sets) DuplicateSet(ctx context.Context, workoutExerciseID string, source *Set) (*Set, error) {
	in := NewSet{WorkoutExerciseID: workoutExerciseID}
	if source != nil {
		in.Weight = source.Weight
		in.Reps = source.Reps
	}
	return s.AddSet(ctx, in)
}

// put inserts or replaces set in state when it belongs to the loaded
// workout exercise.
func (s *Sets) put(set Set) {
	s.h.patch(func() {
		if set.WorkoutExerciseID != s.workoutExerciseID {
			return
		}
		for i := range s.sets {
			if s.sets[i].ID == set.ID {
				s.sets[i] = set
				return
			}
		}
		s.sets = append(s.sets, set)
		sort.SliceStable(s.sets, func(i, j int) bool { return s.sets[i].SetNumber < s.sets[j].SetNumber })
	})
}
