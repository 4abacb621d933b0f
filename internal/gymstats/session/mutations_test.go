package session_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/2beens/gymsession/internal/gymstats/session"
	"github.com/2beens/gymsession/internal/gymstats/units"
	"github.com/2beens/gymsession/internal/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fiveStandalone() []exerciseSpec {
	return []exerciseSpec{
		{name: "Squat", targetSets: 3},
		{name: "Lunge", targetSets: 3},
		{name: "Leg press", targetSets: 3},
		{name: "Leg curl", targetSets: 3},
		{name: "Calf raise", targetSets: 3},
	}
}

func TestController_Navigation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scenarioA...)
	c := f.attach(t, f.startSession(t))

	group, cursor, ok := c.CurrentGroup()
	require.True(t, ok)
	assert.Equal(t, session.Cursor{}, cursor)
	assert.Equal(t, "Bench", group.Exercises[0].Name)
	assert.False(t, c.CanGoPrevious())
	assert.True(t, c.CanGoNext())
	assert.False(t, c.IsLastGroup())

	moved, err := c.GoToPrevious(ctx)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = c.GoToNext(ctx)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, session.Cursor{Group: 1}, c.Cursor())
	assert.True(t, c.IsLastGroup())
	assert.True(t, c.View(units.Kilograms).IsLastGroup)

	moved, err = c.GoToNext(ctx)
	require.NoError(t, err)
	assert.False(t, moved)

	require.NoError(t, c.Select(ctx, session.Cursor{Group: 1, Exercise: 1}))
	group, _, _ = c.CurrentGroup()
	assert.True(t, group.IsSuperset())

	moved, err = c.GoToPrevious(ctx)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, session.Cursor{}, c.Cursor())

	assert.ErrorIs(t, c.Select(ctx, session.Cursor{Group: 2}), session.ErrInvalidTarget)
	assert.ErrorIs(t, c.Select(ctx, session.Cursor{Group: 0, Exercise: 1}), session.ErrInvalidTarget)
}

func TestController_CursorSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scenarioA...)
	sessionID := f.startSession(t)
	c := f.attach(t, sessionID)

	require.NoError(t, c.Select(ctx, session.Cursor{Group: 1, Exercise: 1}))
	require.NoError(t, c.EnterBackground(ctx))

	restarted := f.attach(t, sessionID)
	assert.Equal(t, session.Cursor{Group: 1, Exercise: 1}, restarted.Cursor())
}

func TestController_StaleCursorIsClamped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scenarioA...)
	sessionID := f.startSession(t)

	stale, err := json.Marshal(session.Cursor{Group: 5, Exercise: 3})
	require.NoError(t, err)
	require.NoError(t, f.kv.Set(ctx, kv.KeyPrefix+"nav||"+sessionID.String(), stale))

	c := f.attach(t, sessionID)
	assert.Equal(t, session.Cursor{Group: 1, Exercise: 1}, c.Cursor())

	require.NoError(t, f.kv.Set(ctx, kv.KeyPrefix+"nav||"+sessionID.String(), []byte("{not json")))
	c = f.attach(t, sessionID)
	assert.Equal(t, session.Cursor{}, c.Cursor())
}

func TestController_EmptyDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.attach(t, f.startSession(t))

	_, _, ok := c.CurrentGroup()
	assert.False(t, ok)
	assert.True(t, c.IsLastGroup())
	assert.False(t, c.CanGoPrevious())
	assert.False(t, c.CanDeleteCurrentExercise())
	assert.False(t, c.View(units.Kilograms).HasExercises)

	deleted, err := c.DeleteCurrentExercise(ctx)
	require.NoError(t, err)
	assert.False(t, deleted)

	et, err := c.AddExercise(ctx, session.NewExercise{Name: "Plank", TargetSets: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, et.Order)
	_, _, ok = c.CurrentGroup()
	assert.True(t, ok)
}

func TestController_AddExercise(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scenarioA...)
	sessionID := f.startSession(t)
	c := f.attach(t, sessionID)

	et, err := c.AddExercise(ctx, session.NewExercise{Name: "  Dips ", MuscleGroup: "triceps", TargetSets: 4})
	require.NoError(t, err)
	assert.Equal(t, "Dips", et.Name)
	assert.Equal(t, 3, et.Order)
	assert.Zero(t, et.SupersetGroup)

	assert.Equal(t, session.Cursor{Group: 2}, c.Cursor())
	group, _, ok := c.CurrentGroup()
	require.True(t, ok)
	assert.Equal(t, et.ID, group.Exercises[0].ID)

	templates, err := f.store.ListExerciseTemplates(ctx, f.day.ID)
	require.NoError(t, err)
	require.Len(t, templates, 4)
	assert.Equal(t, "Dips", templates[3].Name)
	assert.Len(t, storedSets(t, f.store, sessionID)[et.ID], 4)

	_, err = c.AddExercise(ctx, session.NewExercise{Name: " ", TargetSets: 3})
	assert.ErrorIs(t, err, session.ErrInvalidInput)
	_, err = c.AddExercise(ctx, session.NewExercise{Name: "Flyes"})
	assert.ErrorIs(t, err, session.ErrInvalidInput)
}

func TestController_DeleteGuard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fiveStandalone()...)
	sessionID := f.startSession(t)
	c := f.attach(t, sessionID)

	// first two exercises are not among the last three
	for range 2 {
		assert.False(t, c.CanDeleteCurrentExercise())
		deleted, err := c.DeleteCurrentExercise(ctx)
		require.NoError(t, err)
		assert.False(t, deleted)
		_, err = c.GoToNext(ctx)
		require.NoError(t, err)
	}

	require.Equal(t, session.Cursor{Group: 2}, c.Cursor())
	assert.True(t, c.CanDeleteCurrentExercise())
	assert.True(t, c.View(units.Kilograms).CanDelete)

	deleted, err := c.DeleteCurrentExercise(ctx)
	require.NoError(t, err)
	assert.True(t, deleted)

	templates, err := f.store.ListExerciseTemplates(ctx, f.day.ID)
	require.NoError(t, err)
	require.Len(t, templates, 4)
	// no renumbering
	assert.Equal(t, []int{0, 1, 3, 4}, []int{templates[0].Order, templates[1].Order, templates[2].Order, templates[3].Order})
	_, found := storedSets(t, f.store, sessionID)[f.template("Leg press").ID]
	assert.False(t, found)

	group, _, _ := c.CurrentGroup()
	assert.Equal(t, "Leg curl", group.Exercises[0].Name)
}

func TestController_DeleteLastGroupClampsCursor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fiveStandalone()...)
	c := f.attach(t, f.startSession(t))

	require.NoError(t, c.Select(ctx, session.Cursor{Group: 4}))
	deleted, err := c.DeleteCurrentExercise(ctx)
	require.NoError(t, err)
	require.True(t, deleted)
	assert.Equal(t, session.Cursor{Group: 3}, c.Cursor())
	assert.True(t, c.IsLastGroup())
}

func TestController_DeleteRefusesLastExercise(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, exerciseSpec{name: "Deadlift", targetSets: 3})
	c := f.attach(t, f.startSession(t))

	assert.False(t, c.CanDeleteCurrentExercise())
	deleted, err := c.DeleteCurrentExercise(ctx)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestController_DeleteSupersetMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scenarioA...)
	c := f.attach(t, f.startSession(t))

	require.NoError(t, c.Select(ctx, session.Cursor{Group: 1, Exercise: 1}))
	deleted, err := c.DeleteCurrentExercise(ctx)
	require.NoError(t, err)
	require.True(t, deleted)

	// the orphaned partner is shown as a standalone exercise
	groups := c.Groups()
	require.Len(t, groups, 2)
	assert.False(t, groups[1].IsSuperset())
	assert.Equal(t, "Row", groups[1].Exercises[0].Name)
	assert.Equal(t, session.Cursor{Group: 1}, c.Cursor())
}

func TestController_Rounds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scenarioA...)
	sessionID := f.startSession(t)
	c := f.attach(t, sessionID)

	require.NoError(t, c.AddRound(ctx, 1))
	stored := storedSets(t, f.store, sessionID)
	assert.Len(t, stored[f.template("Row").ID], 4)
	assert.Len(t, stored[f.template("Curl").ID], 4)
	assert.Equal(t, 3, stored[f.template("Row").ID][3].Order)

	for _, want := range []int{3, 2, 1} {
		removed, err := c.RemoveRound(ctx, 1)
		require.NoError(t, err)
		require.True(t, removed)
		stored = storedSets(t, f.store, sessionID)
		assert.Len(t, stored[f.template("Row").ID], want)
		assert.Len(t, stored[f.template("Curl").ID], want)
	}

	removed, err := c.RemoveRound(ctx, 1)
	require.NoError(t, err)
	assert.False(t, removed, "the last round stays")
	assert.Equal(t, 1, c.View(units.Kilograms).Groups[1].Rounds)

	assert.ErrorIs(t, c.AddRound(ctx, 0), session.ErrInvalidTarget)
	_, err = c.RemoveRound(ctx, 7)
	assert.ErrorIs(t, err, session.ErrInvalidTarget)
}

func TestController_RoundsLevelUnevenSupersets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		exerciseSpec{name: "Press", supersetGroup: 2, targetSets: 2},
		exerciseSpec{name: "Pulldown", supersetGroup: 2, targetSets: 4},
	)
	sessionID := f.startSession(t)
	c := f.attach(t, sessionID)

	require.NoError(t, c.AddRound(ctx, 0))
	stored := storedSets(t, f.store, sessionID)
	assert.Len(t, stored[f.template("Press").ID], 5)
	assert.Len(t, stored[f.template("Pulldown").ID], 5)
}

func TestController_RemoveRoundDropsPendingInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scenarioA...)
	sessionID := f.startSession(t)
	c := f.attach(t, sessionID)

	_, err := c.RecordSetInput(ctx, setID(t, c, "Row", 2), session.SetInput{Weight: ptr(50.0)})
	require.NoError(t, err)
	removed, err := c.RemoveRound(ctx, 1)
	require.NoError(t, err)
	require.True(t, removed)
	require.NoError(t, c.Flush(ctx))

	assert.Len(t, storedSets(t, f.store, sessionID)[f.template("Row").ID], 2)
}

func TestController_StandaloneSets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scenarioA...)
	sessionID := f.startSession(t)
	c := f.attach(t, sessionID)
	bench := f.template("Bench").ID

	set, err := c.AddSet(ctx, bench)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Order)
	assert.Len(t, storedSets(t, f.store, sessionID)[bench], 4)

	for range 3 {
		removed, err := c.RemoveSet(ctx, bench)
		require.NoError(t, err)
		require.True(t, removed)
	}
	removed, err := c.RemoveSet(ctx, bench)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, storedSets(t, f.store, sessionID)[bench], 1)

	_, err = c.AddSet(ctx, f.template("Row").ID)
	assert.ErrorIs(t, err, session.ErrInvalidTarget)
	_, err = c.RemoveSet(ctx, f.template("Curl").ID)
	assert.ErrorIs(t, err, session.ErrInvalidTarget)
}
