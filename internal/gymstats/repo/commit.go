package repo

import (
	"context"
	"fmt"

	"github.com/2beens/gymsession/internal/gymstats/workout"
)

// execFunc runs one statement inside the transaction of the calling repo.
type execFunc func(ctx context.Context, query string, args ...any) error

// applyChanges writes a change set through exec: deletions child first,
// then upserts parent first.
func applyChanges(ctx context.Context, exec execFunc, cs *workout.ChangeSet) error {
	for _, id := range cs.DeletedSets {
		if err := exec(ctx, queryDeleteSet, id); err != nil {
			return fmt.Errorf("delete set %s: %w", id, err)
		}
	}
	for _, id := range cs.DeletedCompletedExercises {
		if err := exec(ctx, queryDeleteCompletedExercise, id); err != nil {
			return fmt.Errorf("delete completed exercise %s: %w", id, err)
		}
	}
	for _, id := range cs.DeletedExerciseTemplates {
		if err := exec(ctx, queryDeleteExerciseTemplate, id); err != nil {
			return fmt.Errorf("delete exercise template %s: %w", id, err)
		}
	}

	for _, p := range cs.Programs {
		if err := exec(ctx, queryUpsertProgram, p.ID, p.Name, p.Notes, p.CreatedAt); err != nil {
			return fmt.Errorf("upsert program %s: %w", p.ID, err)
		}
	}
	for _, dt := range cs.DayTemplates {
		if err := exec(ctx, queryUpsertDayTemplate, dt.ID, dt.ProgramID, dt.Name, dt.Notes, dt.Order); err != nil {
			return fmt.Errorf("upsert day template %s: %w", dt.ID, err)
		}
	}
	for _, et := range cs.ExerciseTemplates {
		if err := exec(ctx, queryUpsertExerciseTemplate,
			et.ID, et.DayTemplateID, et.Name, et.MuscleGroup, et.Notes, et.Order, et.TargetSets, et.SupersetGroup,
		); err != nil {
			return fmt.Errorf("upsert exercise template %s: %w", et.ID, err)
		}
	}
	for _, s := range cs.Sessions {
		if err := exec(ctx, queryUpsertSession,
			s.ID, s.DayTemplateID, s.Date, s.StartTime, s.EndTime, s.SleepHours, s.ProteinGrams, s.UserBodyweight, s.Notes,
		); err != nil {
			return fmt.Errorf("upsert session %s: %w", s.ID, err)
		}
	}
	for _, ce := range cs.CompletedExercises {
		if err := exec(ctx, queryUpsertCompletedExercise, ce.ID, ce.SessionID, ce.ExerciseTemplateID); err != nil {
			return fmt.Errorf("upsert completed exercise %s: %w", ce.ID, err)
		}
	}
	for _, s := range cs.Sets {
		if err := exec(ctx, queryUpsertSet,
			s.ID, s.CompletedExerciseID, s.Order, s.Weight, s.Reps, s.IsCompleted, s.IsBodyweight, s.ExtraWeight, s.RestSeconds,
		); err != nil {
			return fmt.Errorf("upsert set %s: %w", s.ID, err)
		}
	}
	return nil
}
