package fitsync

import "time"

// Profile is one user's public profile row.
type Profile struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	Bio         string     `json:"bio"`
	AvatarURL   string     `json:"avatar_url"`
	Username    string     `json:"username"`
	Badges      []string   `json:"badges"`
	IsPrivate   bool       `json:"is_private"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

func (p *Profile) clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	if p.Badges != nil {
		c.Badges = append([]string(nil), p.Badges...)
	}
	return &c
}

// HasBadge reports whether the profile holds badgeID. A nil profile or badge
// set holds nothing.
func (p *Profile) HasBadge(badgeID string) bool {
	if p == nil {
		return false
	}
	for _, b := range p.Badges {
		if b == badgeID {
			return true
		}
	}
	return false
}

// ProfileUpdate is a partial profile. Nil fields are left as stored.
type ProfileUpdate struct {
	DisplayName *string `validate:"omitempty,max=80"`
	Bio         *string `validate:"omitempty,max=500"`
	AvatarURL   *string `validate:"omitempty,url"`
	Username    *string `validate:"omitempty,min=3,max=30"`
	IsPrivate   *bool
}

func (u ProfileUpdate) row() Row {
	row := Row{}
	if u.DisplayName != nil {
		row["display_name"] = *u.DisplayName
	}
	if u.Bio != nil {
		row["bio"] = *u.Bio
	}
	if u.AvatarURL != nil {
		row["avatar_url"] = *u.AvatarURL
	}
	if u.Username != nil {
		// Usernames are unique; an empty one is stored as NULL.
		if *u.Username == "" {
			row["username"] = nil
		} else {
			row["username"] = *u.Username
		}
	}
	if u.IsPrivate != nil {
		row["is_private"] = *u.IsPrivate
	}
	return row
}

// ProfileSummary is the slice of a profile shown next to a connection.
type ProfileSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Username    string `json:"username"`
}

var summaryColumns = []string{"id", "display_name", "avatar_url", "username"}

// ConnectionStatus is the lifecycle state of a connection record.
type ConnectionStatus string

const (
	StatusPending  ConnectionStatus = "pending"
	StatusAccepted ConnectionStatus = "accepted"
)

// Direction is a pending record's role relative to the viewer.
type Direction string

const (
	DirectionNone     Direction = ""
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Connection is a directed crew proposal between two users.
type Connection struct {
	ID          string           `json:"id"`
	RequesterID string           `json:"requester_id"`
	ReceiverID  string           `json:"receiver_id"`
	Status      ConnectionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}

// DirectionFor derives the record's direction for viewerID. Accepted records
// and records the viewer is not party to have none.
func (c Connection) DirectionFor(viewerID string) Direction {
	if c.Status != StatusPending {
		return DirectionNone
	}
	switch viewerID {
	case c.ReceiverID:
		return DirectionIncoming
	case c.RequesterID:
		return DirectionOutgoing
	}
	return DirectionNone
}

// Counterpart returns the other party from viewerID's side.
func (c Connection) Counterpart(viewerID string) string {
	if c.RequesterID == viewerID {
		return c.ReceiverID
	}
	return c.RequesterID
}

// CrewMember is a connection joined with its counterpart's summary.
type CrewMember struct {
	Connection
	Direction Direction      `json:"direction,omitempty"`
	Profile   ProfileSummary `json:"profile"`
}

// Exercise is a catalog entry. Global entries are shared; custom entries
// belong to CreatedBy.
type Exercise struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MuscleGroup string    `json:"muscle_group"`
	IsCustom    bool      `json:"is_custom"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExerciseInput describes a new custom exercise.
type ExerciseInput struct {
	Name        string `validate:"required,max=100"`
	MuscleGroup string `validate:"required,max=50"`
}

// ExerciseUpdate is a partial custom exercise.
type ExerciseUpdate struct {
	Name        *string `validate:"omitempty,min=1,max=100"`
	MuscleGroup *string `validate:"omitempty,min=1,max=50"`
}

func (u ExerciseUpdate) row() Row {
	row := Row{}
	if u.Name != nil {
		row["name"] = *u.Name
	}
	if u.MuscleGroup != nil {
		row["muscle_group"] = *u.MuscleGroup
	}
	return row
}

// Workout is a logged session with its exercise associations.
type Workout struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Name      string            `json:"name"`
	Date      time.Time         `json:"date"`
	Notes     string            `json:"notes"`
	CreatedAt time.Time         `json:"created_at"`
	Exercises []WorkoutExercise `json:"exercises"`
}

// WorkoutExercise places an exercise in a workout.
type WorkoutExercise struct {
	ID         string `json:"id"`
	WorkoutID  string `json:"workout_id"`
	ExerciseID string `json:"exercise_id"`
	Position   int    `json:"position"`
}

// NewWorkout describes a workout to create. A zero Date means now.
type NewWorkout struct {
	Name        string `validate:"required,max=100"`
	Date        time.Time
	Notes       string   `validate:"max=2000"`
	ExerciseIDs []string `validate:"dive,required"`
}

// Set is one weight/reps entry of a workout exercise. CompletedAt is non-nil
// exactly when IsCompleted is true.
type Set struct {
	ID                string     `json:"id"`
	WorkoutExerciseID string     `json:"workout_exercise_id"`
	SetNumber         int        `json:"set_number"`
	Weight            float64    `json:"weight"`
	Reps              int        `json:"reps"`
	IsCompleted       bool       `json:"is_completed"`
	CompletedAt       *time.Time `json:"completed_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

// NewSet describes a set to log.
type NewSet struct {
	WorkoutExerciseID string  `validate:"required"`
	Weight            float64 `validate:"gte=0"`
	Reps              int     `validate:"gte=0"`
}

// SetUpdate is a partial set.
type SetUpdate struct {
	Weight *float64 `validate:"omitempty,gte=0"`
	Reps   *int     `validate:"omitempty,gte=0"`
}

func (u SetUpdate) row() Row {
	row := Row{}
	if u.Weight != nil {
		row["weight"] = *u.Weight
	}
	if u.Reps != nil {
		row["reps"] = *u.Reps
	}
	return row
}
