package workout

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExerciseSet_Completed(t *testing.T) {
	testCases := []struct {
		name     string
		set      ExerciseSet
		expected bool
	}{
		{name: "empty", set: ExerciseSet{}, expected: false},
		{name: "weight only", set: ExerciseSet{Weight: 80}, expected: false},
		{name: "reps only", set: ExerciseSet{Reps: 8}, expected: false},
		{name: "weight and reps", set: ExerciseSet{Weight: 80, Reps: 8}, expected: true},
		{name: "negative weight", set: ExerciseSet{Weight: -5, Reps: 8}, expected: false},
		{name: "bodyweight with reps", set: ExerciseSet{IsBodyweight: true, Reps: 12}, expected: true},
		{name: "bodyweight with extra", set: ExerciseSet{IsBodyweight: true, ExtraWeight: 10, Reps: 6}, expected: true},
		{name: "bodyweight no reps", set: ExerciseSet{IsBodyweight: true, ExtraWeight: 10}, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.set.Completed())
			s := tc.set
			s.Refresh()
			assert.Equal(t, tc.expected, s.IsCompleted)
		})
	}
}

func TestExerciseSet_RefreshReportsChangeOnlyOnce(t *testing.T) {
	s := ExerciseSet{Weight: 80, Reps: 8}
	assert.True(t, s.Refresh())
	assert.False(t, s.Refresh())

	s.Reps = 0
	assert.True(t, s.Refresh())
	assert.False(t, s.IsCompleted)
}

func TestExerciseSet_BodyweightToggle(t *testing.T) {
	s := ExerciseSet{Weight: 80, Reps: 8}
	s.Refresh()
	require.True(t, s.IsCompleted)

	s.SetBodyweight(true)
	s.Refresh()
	assert.True(t, s.IsCompleted, "bodyweight set with reps counts as completed")
	assert.Zero(t, s.Weight)

	// weight was cleared on toggle, so toggling back does not restore completion
	s.SetBodyweight(false)
	s.Refresh()
	assert.False(t, s.IsCompleted)
	assert.Zero(t, s.Weight)

	// a no-op toggle keeps the fields
	s.Weight = 60
	s.SetBodyweight(false)
	assert.Equal(t, 60.0, s.Weight)
}

func TestExerciseSet_EffectiveWeight(t *testing.T) {
	assert.Equal(t, 80.0, ExerciseSet{Weight: 80}.EffectiveWeight(75))
	assert.Equal(t, 85.0, ExerciseSet{IsBodyweight: true, ExtraWeight: 10}.EffectiveWeight(75))
}

func TestSession_IsInProgress(t *testing.T) {
	now := time.Now()
	assert.False(t, Session{}.IsInProgress())
	assert.True(t, Session{StartTime: &now}.IsInProgress())
	assert.False(t, Session{StartTime: &now, EndTime: &now}.IsInProgress())
}

func TestChangeSet_MergeAndEmpty(t *testing.T) {
	var nilCs *ChangeSet
	assert.True(t, nilCs.IsEmpty())

	cs := &ChangeSet{}
	assert.True(t, cs.IsEmpty())

	cs.Merge(&ChangeSet{
		Sets:        []ExerciseSet{NewEmptySet(uuid.New(), 0)},
		DeletedSets: []uuid.UUID{uuid.New()},
	})
	assert.False(t, cs.IsEmpty())
	assert.Len(t, cs.Sets, 1)
	assert.Len(t, cs.DeletedSets, 1)
}
