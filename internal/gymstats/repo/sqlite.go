package repo

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/2beens/gymsession/internal/gymstats/workout"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

var _ workout.Store = (*SqliteRepo)(nil)

// SqliteRepo is the single-file local store, used on device-style setups
// and by the CLI when no Postgres is configured.
type SqliteRepo struct {
	path string
	db   *sql.DB
}

func OpenSqliteRepo(ctx context.Context, path string) (*SqliteRepo, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// a single writer connection keeps transactions serialized
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	log.Debugf("sqlite workout store opened: %s", path)
	return &SqliteRepo{
		path: path,
		db:   db,
	}, nil
}

func (r *SqliteRepo) Path() string {
	return r.path
}

func (r *SqliteRepo) Close() error {
	return r.db.Close()
}

func (r *SqliteRepo) GetDayTemplate(ctx context.Context, id uuid.UUID) (*workout.DayTemplate, error) {
	dt := &workout.DayTemplate{}
	err := r.db.
		QueryRowContext(ctx, rebindNumbered(queryGetDayTemplate), id).
		Scan(&dt.ID, &dt.ProgramID, &dt.Name, &dt.Notes, &dt.Order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("day template %s: %w", id, workout.ErrNotFound)
		}
		return nil, err
	}
	return dt, nil
}

func (r *SqliteRepo) ListExerciseTemplates(ctx context.Context, dayTemplateID uuid.UUID) ([]workout.ExerciseTemplate, error) {
	rows, err := r.db.QueryContext(ctx, rebindNumbered(queryListExerciseTemplates), dayTemplateID)
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
	return templates, rows.Err()
}

func (r *SqliteRepo) GetSession(ctx context.Context, id uuid.UUID) (*workout.Session, error) {
	s, err := scanSqliteSession(r.db.QueryRowContext(ctx, rebindNumbered(queryGetSession), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, workout.ErrNotFound)
		}
		return nil, err
	}
	return s, nil
}

func (r *SqliteRepo) ListInProgressSessions(ctx context.Context) ([]workout.Session, error) {
	rows, err := r.db.QueryContext(ctx, queryListInProgressSessions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]workout.Session, 0)
	for rows.Next() {
		s, err := scanSqliteSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *SqliteRepo) LatestBodyweight(ctx context.Context) (float64, bool, error) {
	var bodyweight float64
	if err := r.db.QueryRowContext(ctx, queryLatestBodyweight).Scan(&bodyweight); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return bodyweight, true, nil
}

func (r *SqliteRepo) ListCompletedExercises(ctx context.Context, sessionID uuid.UUID) ([]workout.CompletedExercise, error) {
	rows, err := r.db.QueryContext(ctx, rebindNumbered(queryListCompletedExercises), sessionID)
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
	return completed, rows.Err()
}

func (r *SqliteRepo) ListSets(ctx context.Context, completedExerciseID uuid.UUID) ([]workout.ExerciseSet, error) {
	rows, err := r.db.QueryContext(ctx, rebindNumbered(queryListSets), completedExerciseID)
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
	return sets, rows.Err()
}

func (r *SqliteRepo) Commit(ctx context.Context, changes *workout.ChangeSet) (err error) {
	if changes.IsEmpty() {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit()
		}
	}()

	return applyChanges(ctx, func(ctx context.Context, query string, args ...any) error {
		_, err := tx.ExecContext(ctx, rebindNumbered(query), args...)
		return err
	}, utcChanges(changes))
}

// utcChanges normalizes timestamps so text ordering in sqlite matches time ordering.
func utcChanges(cs *workout.ChangeSet) *workout.ChangeSet {
	out := *cs
	out.Programs = make([]workout.Program, len(cs.Programs))
	for i, p := range cs.Programs {
		p.CreatedAt = p.CreatedAt.UTC()
		out.Programs[i] = p
	}
	out.Sessions = make([]workout.Session, len(cs.Sessions))
	for i, s := range cs.Sessions {
		s.Date = s.Date.UTC()
		s.StartTime = utcPtr(s.StartTime)
		s.EndTime = utcPtr(s.EndTime)
		out.Sessions[i] = s
	}
	return &out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func scanSqliteSession(row interface{ Scan(dest ...any) error }) (*workout.Session, error) {
	s := &workout.Session{}
	if err := row.Scan(
		&s.ID, &s.DayTemplateID, &s.Date, &s.StartTime, &s.EndTime,
		&s.SleepHours, &s.ProteinGrams, &s.UserBodyweight, &s.Notes,
	); err != nil {
		return nil, err
	}
	return s, nil
}
