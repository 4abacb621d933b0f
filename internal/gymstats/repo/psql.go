package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/gymsession/internal/gymstats/workout"
	"github.com/2beens/gymsession/internal/telemetry/tracing"
	"github.com/2beens/gymsession/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var _ workout.Store = (*PsqlRepo)(nil)

type PsqlRepo struct {
	db *pgxpool.Pool
}

func NewPsqlRepo(db *pgxpool.Pool) *PsqlRepo {
	return &PsqlRepo{
		db: db,
	}
}

func (r *PsqlRepo) GetDayTemplate(ctx context.Context, id uuid.UUID) (_ *workout.DayTemplate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.daytemplate.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("id", id.String()))

	dt := &workout.DayTemplate{}
	err = r.db.
		QueryRow(ctx, queryGetDayTemplate, id).
		Scan(&dt.ID, &dt.ProgramID, &dt.Name, &dt.Notes, &dt.Order)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("day template %s: %w", id, workout.ErrNotFound)
		}
		return nil, err
	}
	return dt, nil
}

func (r *PsqlRepo) ListExerciseTemplates(ctx context.Context, dayTemplateID uuid.UUID) (_ []workout.ExerciseTemplate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.exercisetemplates.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("day-template-id", dayTemplateID.String()))

	rows, err := r.db.Query(ctx, queryListExerciseTemplates, dayTemplateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]workout.ExerciseTemplate, 0)
	for rows.Next() {
		var et workout.ExerciseTemplate
		if err := rows.Scan(
			&et.ID, &et.DayTemplateID, &et.Name, &et.MuscleGroup, &et.Notes,
			&et.Order, &et.TargetSets, &et.SupersetGroup,
		); err != nil {
			return nil, err
		}
		templates = append(templates, et)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

func (r *PsqlRepo) GetSession(ctx context.Context, id uuid.UUID) (_ *workout.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.session.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("id", id.String()))

	s, err := scanSession(r.db.QueryRow(ctx, queryGetSession, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, workout.ErrNotFound)
		}
		return nil, err
	}
	return s, nil
}

func (r *PsqlRepo) ListInProgressSessions(ctx context.Context) (_ []workout.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.sessions.inprogress")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := r.db.Query(ctx, queryListInProgressSessions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]workout.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(sessions)))
	return sessions, nil
}

func (r *PsqlRepo) LatestBodyweight(ctx context.Context) (_ float64, _ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.bodyweight.latest")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	var bodyweight float64
	if err := r.db.QueryRow(ctx, queryLatestBodyweight).Scan(&bodyweight); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return bodyweight, true, nil
}

func (r *PsqlRepo) ListCompletedExercises(ctx context.Context, sessionID uuid.UUID) (_ []workout.CompletedExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.completedexercises.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("session-id", sessionID.String()))

	rows, err := r.db.Query(ctx, queryListCompletedExercises, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completed := make([]workout.CompletedExercise, 0)
	for rows.Next() {
		var ce workout.CompletedExercise
		if err := rows.Scan(&ce.ID, &ce.SessionID, &ce.ExerciseTemplateID); err != nil {
			return nil, err
		}
		completed = append(completed, ce)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return completed, nil
}

func (r *PsqlRepo) ListSets(ctx context.Context, completedExerciseID uuid.UUID) (_ []workout.ExerciseSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.sets.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("completed-exercise-id", completedExerciseID.String()))

	rows, err := r.db.Query(ctx, queryListSets, completedExerciseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := make([]workout.ExerciseSet, 0)
	for rows.Next() {
		var s workout.ExerciseSet
		if err := rows.Scan(
			&s.ID, &s.CompletedExerciseID, &s.Order, &s.Weight, &s.Reps,
			&s.IsCompleted, &s.IsBodyweight, &s.ExtraWeight, &s.RestSeconds,
		); err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sets, nil
}

func (r *PsqlRepo) Commit(ctx context.Context, changes *workout.ChangeSet) (err error) {
	if changes.IsEmpty() {
		return nil
	}

	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.commit")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(
		attribute.Int("sets", len(changes.Sets)),
		attribute.Int("deleted-sets", len(changes.DeletedSets)),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = applyChanges(ctx, func(ctx context.Context, query string, args ...any) error {
		_, err := tx.Exec(ctx, query, args...)
		return err
	}, changes)
	if pkg.IsConstraintViolationError(err) {
		err = fmt.Errorf("%w: %w", workout.ErrConstraint, err)
	}
	return err
}

func scanSession(row pgx.Row) (*workout.Session, error) {
	s := &workout.Session{}
	if err := row.Scan(
		&s.ID, &s.DayTemplateID, &s.Date, &s.StartTime, &s.EndTime,
		&s.SleepHours, &s.ProteinGrams, &s.UserBodyweight, &s.Notes,
	); err != nil {
		return nil, err
	}
	return s, nil
}
