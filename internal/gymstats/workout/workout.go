package workout

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConstraint is returned by Store.Commit when a change set breaks a
	// reference or uniqueness rule.
	ErrConstraint = errors.New("constraint violation")
)

type Program struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

type DayTemplate struct {
	ID        uuid.UUID `json:"id"`
	ProgramID uuid.UUID `json:"programId"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes"`
	Order     int       `json:"order"`
}

// ExerciseTemplate is a planned exercise within a day template.
// SupersetGroup 0 means standalone; a positive value is shared by
// exactly the two paired exercises.
type ExerciseTemplate struct {
	ID            uuid.UUID `json:"id"`
	DayTemplateID uuid.UUID `json:"dayTemplateId"`
	Name          string    `json:"name"`
	MuscleGroup   string    `json:"muscleGroup"`
	Notes         string    `json:"notes"`
	Order         int       `json:"order"`
	TargetSets    int       `json:"targetSets"`
	SupersetGroup int       `json:"supersetGroup"`
}

func (et ExerciseTemplate) IsSuperset() bool {
	return et.SupersetGroup > 0
}

type Session struct {
	ID             uuid.UUID  `json:"id"`
	DayTemplateID  uuid.UUID  `json:"dayTemplateId"`
	Date           time.Time  `json:"date"`
	StartTime      *time.Time `json:"startTime,omitempty"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	SleepHours     float64    `json:"sleepHours"`
	ProteinGrams   int        `json:"proteinGrams"`
	UserBodyweight float64    `json:"userBodyweight"`
	Notes          string     `json:"notes"`
}

func (s Session) IsInProgress() bool {
	return s.StartTime != nil && s.EndTime == nil
}

// CompletedExercise is the per-session realization of an exercise template.
type CompletedExercise struct {
	ID                 uuid.UUID `json:"id"`
	SessionID          uuid.UUID `json:"sessionId"`
	ExerciseTemplateID uuid.UUID `json:"exerciseTemplateId"`
}
