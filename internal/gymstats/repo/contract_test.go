package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/2beens/gymsession/internal/gymstats/workout"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	program   workout.Program
	day       workout.DayTemplate
	templates []workout.ExerciseTemplate
}

func newFixture(templateCount int) fixture {
	program := workout.Program{
		ID:        uuid.New(),
		Name:      gofakeit.AppName(),
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	day := workout.DayTemplate{
		ID:        uuid.New(),
		ProgramID: program.ID,
		Name:      "Push",
	}
	templates := make([]workout.ExerciseTemplate, 0, templateCount)
	// inserted in reverse to check ordering on read
	for i := templateCount - 1; i >= 0; i-- {
		templates = append(templates, workout.ExerciseTemplate{
			ID:            uuid.New(),
			DayTemplateID: day.ID,
			Name:          gofakeit.Word(),
			MuscleGroup:   "chest",
			Order:         i,
			TargetSets:    3,
		})
	}
	return fixture{program: program, day: day, templates: templates}
}

func (f fixture) changeSet() *workout.ChangeSet {
	return &workout.ChangeSet{
		Programs:          []workout.Program{f.program},
		DayTemplates:      []workout.DayTemplate{f.day},
		ExerciseTemplates: f.templates,
	}
}

func newSession(dayID uuid.UUID, start time.Time, bodyweight float64) workout.Session {
	return workout.Session{
		ID:             uuid.New(),
		DayTemplateID:  dayID,
		Date:           start,
		StartTime:      &start,
		UserBodyweight: bodyweight,
	}
}

// runStoreContract checks the behavior every workout.Store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) workout.Store) {
	ctx := context.Background()

	t.Run("day template and ordered exercise templates", func(t *testing.T) {
		store := newStore(t)
		f := newFixture(4)
		require.NoError(t, store.Commit(ctx, f.changeSet()))

		dt, err := store.GetDayTemplate(ctx, f.day.ID)
		require.NoError(t, err)
		assert.Equal(t, "Push", dt.Name)
		assert.Equal(t, f.program.ID, dt.ProgramID)

		templates, err := store.ListExerciseTemplates(ctx, f.day.ID)
		require.NoError(t, err)
		require.Len(t, templates, 4)
		for i, et := range templates {
			assert.Equal(t, i, et.Order)
			assert.Equal(t, 3, et.TargetSets)
		}

		_, err = store.GetDayTemplate(ctx, uuid.New())
		assert.ErrorIs(t, err, workout.ErrNotFound)
	})

	t.Run("sessions", func(t *testing.T) {
		store := newStore(t)
		f := newFixture(1)
		require.NoError(t, store.Commit(ctx, f.changeSet()))

		_, found, err := store.LatestBodyweight(ctx)
		require.NoError(t, err)
		assert.False(t, found)

		older := newSession(f.day.ID, time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), 81.5)
		newer := newSession(f.day.ID, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), 80.2)
		end := newer.StartTime.Add(time.Hour)
		newer.EndTime = &end
		require.NoError(t, store.Commit(ctx, &workout.ChangeSet{Sessions: []workout.Session{older, newer}}))

		got, err := store.GetSession(ctx, newer.ID)
		require.NoError(t, err)
		require.NotNil(t, got.StartTime)
		require.NotNil(t, got.EndTime)
		assert.True(t, got.EndTime.Equal(end))
		assert.False(t, got.IsInProgress())

		inProgress, err := store.ListInProgressSessions(ctx)
		require.NoError(t, err)
		require.Len(t, inProgress, 1)
		assert.Equal(t, older.ID, inProgress[0].ID)
		assert.Nil(t, inProgress[0].EndTime)

		bodyweight, found, err := store.LatestBodyweight(ctx)
		require.NoError(t, err)
		assert.True(t, found)
		assert.InDelta(t, 80.2, bodyweight, 0.001)

		_, err = store.GetSession(ctx, uuid.New())
		assert.ErrorIs(t, err, workout.ErrNotFound)
	})

	t.Run("sets upsert and delete", func(t *testing.T) {
		store := newStore(t)
		f := newFixture(1)
		session := newSession(f.day.ID, time.Now().UTC().Truncate(time.Second), 0)
		ce := workout.CompletedExercise{ID: uuid.New(), SessionID: session.ID, ExerciseTemplateID: f.templates[0].ID}
		sets := []workout.ExerciseSet{
			workout.NewEmptySet(ce.ID, 2),
			workout.NewEmptySet(ce.ID, 0),
			workout.NewEmptySet(ce.ID, 1),
		}

		cs := f.changeSet()
		cs.Sessions = []workout.Session{session}
		cs.CompletedExercises = []workout.CompletedExercise{ce}
		cs.Sets = sets
		require.NoError(t, store.Commit(ctx, cs))

		listed, err := store.ListSets(ctx, ce.ID)
		require.NoError(t, err)
		require.Len(t, listed, 3)
		for i, s := range listed {
			assert.Equal(t, i, s.Order)
		}

		updated := listed[0]
		updated.Weight = 80
		updated.Reps = 8
		updated.Refresh()
		require.NoError(t, store.Commit(ctx, &workout.ChangeSet{
			Sets:        []workout.ExerciseSet{updated},
			DeletedSets: []uuid.UUID{listed[2].ID},
		}))

		listed, err = store.ListSets(ctx, ce.ID)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, 80.0, listed[0].Weight)
		assert.Equal(t, 8, listed[0].Reps)
		assert.True(t, listed[0].IsCompleted)

		completed, err := store.ListCompletedExercises(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, completed, 1)
		assert.Equal(t, ce.ExerciseTemplateID, completed[0].ExerciseTemplateID)
	})

	t.Run("deleting a template cascades", func(t *testing.T) {
		store := newStore(t)
		f := newFixture(2)
		session := newSession(f.day.ID, time.Now().UTC().Truncate(time.Second), 0)
		ce := workout.CompletedExercise{ID: uuid.New(), SessionID: session.ID, ExerciseTemplateID: f.templates[0].ID}

		cs := f.changeSet()
		cs.Sessions = []workout.Session{session}
		cs.CompletedExercises = []workout.CompletedExercise{ce}
		cs.Sets = []workout.ExerciseSet{workout.NewEmptySet(ce.ID, 0)}
		require.NoError(t, store.Commit(ctx, cs))

		require.NoError(t, store.Commit(ctx, &workout.ChangeSet{
			DeletedExerciseTemplates: []uuid.UUID{f.templates[0].ID},
		}))

		templates, err := store.ListExerciseTemplates(ctx, f.day.ID)
		require.NoError(t, err)
		assert.Len(t, templates, 1)

		completed, err := store.ListCompletedExercises(ctx, session.ID)
		require.NoError(t, err)
		assert.Empty(t, completed)

		sets, err := store.ListSets(ctx, ce.ID)
		require.NoError(t, err)
		assert.Empty(t, sets)
	})

	t.Run("failed commit leaves nothing behind", func(t *testing.T) {
		store := newStore(t)
		f := newFixture(1)
		require.NoError(t, store.Commit(ctx, f.changeSet()))

		session := newSession(f.day.ID, time.Now().UTC().Truncate(time.Second), 0)
		orphanSet := workout.NewEmptySet(uuid.New(), 0)
		err := store.Commit(ctx, &workout.ChangeSet{
			Sessions: []workout.Session{session},
			Sets:     []workout.ExerciseSet{orphanSet},
		})
		require.Error(t, err)

		_, err = store.GetSession(ctx, session.ID)
		assert.ErrorIs(t, err, workout.ErrNotFound)
	})

	t.Run("one completed exercise per session and template", func(t *testing.T) {
		store := newStore(t)
		f := newFixture(1)
		session := newSession(f.day.ID, time.Now().UTC().Truncate(time.Second), 0)
		cs := f.changeSet()
		cs.Sessions = []workout.Session{session}
		cs.CompletedExercises = []workout.CompletedExercise{
			{ID: uuid.New(), SessionID: session.ID, ExerciseTemplateID: f.templates[0].ID},
		}
		require.NoError(t, store.Commit(ctx, cs))

		err := store.Commit(ctx, &workout.ChangeSet{
			CompletedExercises: []workout.CompletedExercise{
				{ID: uuid.New(), SessionID: session.ID, ExerciseTemplateID: f.templates[0].ID},
			},
		})
		assert.Error(t, err)
	})

	t.Run("empty commit is a no-op", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Commit(ctx, &workout.ChangeSet{}))
		assert.NoError(t, store.Commit(ctx, nil))
	})
}
