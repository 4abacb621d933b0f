package workout

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -source=$GOFILE -destination=../session/store_mocks_test.go -package=session_test

// Store is the persistent entity store the session engine works against.
// Ordered lists are returned sorted by their Order field.
type Store interface {
	GetDayTemplate(ctx context.Context, id uuid.UUID) (*DayTemplate, error)
	ListExerciseTemplates(ctx context.Context, dayTemplateID uuid.UUID) ([]ExerciseTemplate, error)
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	ListInProgressSessions(ctx context.Context) ([]Session, error)
	LatestBodyweight(ctx context.Context) (float64, bool, error)
	ListCompletedExercises(ctx context.Context, sessionID uuid.UUID) ([]CompletedExercise, error)
	ListSets(ctx context.Context, completedExerciseID uuid.UUID) ([]ExerciseSet, error)
	Commit(ctx context.Context, changes *ChangeSet) error
}

// ChangeSet is a unit of work applied atomically by Store.Commit.
// Upserts are applied parent first, deletions child first.
type ChangeSet struct {
	Programs           []Program
	DayTemplates       []DayTemplate
	ExerciseTemplates  []ExerciseTemplate
	Sessions           []Session
	CompletedExercises []CompletedExercise
	Sets               []ExerciseSet

	DeletedSets               []uuid.UUID
	DeletedCompletedExercises []uuid.UUID
	DeletedExerciseTemplates  []uuid.UUID
}

func (cs *ChangeSet) IsEmpty() bool {
	return cs == nil ||
		len(cs.Programs) == 0 &&
			len(cs.DayTemplates) == 0 &&
			len(cs.ExerciseTemplates) == 0 &&
			len(cs.Sessions) == 0 &&
			len(cs.CompletedExercises) == 0 &&
			len(cs.Sets) == 0 &&
			len(cs.DeletedSets) == 0 &&
			len(cs.DeletedCompletedExercises) == 0 &&
			len(cs.DeletedExerciseTemplates) == 0
}

// Merge appends other into cs.
func (cs *ChangeSet) Merge(other *ChangeSet) {
	if other == nil {
		return
	}
	cs.Programs = append(cs.Programs, other.Programs...)
	cs.DayTemplates = append(cs.DayTemplates, other.DayTemplates...)
	cs.ExerciseTemplates = append(cs.ExerciseTemplates, other.ExerciseTemplates...)
	cs.Sessions = append(cs.Sessions, other.Sessions...)
	cs.CompletedExercises = append(cs.CompletedExercises, other.CompletedExercises...)
	cs.Sets = append(cs.Sets, other.Sets...)
	cs.DeletedSets = append(cs.DeletedSets, other.DeletedSets...)
	cs.DeletedCompletedExercises = append(cs.DeletedCompletedExercises, other.DeletedCompletedExercises...)
	cs.DeletedExerciseTemplates = append(cs.DeletedExerciseTemplates, other.DeletedExerciseTemplates...)
}
