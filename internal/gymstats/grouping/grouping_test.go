package grouping_test

import (
	"errors"
	"testing"

	"github.com/2beens/gymsession/internal/gymstats/grouping"
	"github.com/2beens/gymsession/internal/gymstats/workout"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func template(name string, order, superset int) workout.ExerciseTemplate {
	return workout.ExerciseTemplate{
		ID:            uuid.New(),
		Name:          name,
		Order:         order,
		TargetSets:    3,
		SupersetGroup: superset,
	}
}

func TestBuild_StandaloneAndSuperset(t *testing.T) {
	bench := template("Bench", 0, 0)
	row := template("Row", 1, 1)
	curl := template("Curl", 2, 1)

	groups := grouping.Build([]workout.ExerciseTemplate{curl, bench, row})
	require.Len(t, groups, 2)

	assert.Equal(t, grouping.KindStandalone, groups[0].Kind)
	require.Len(t, groups[0].Exercises, 1)
	assert.Equal(t, "Bench", groups[0].Exercises[0].Name)
	assert.Empty(t, groups[0].Label(0))

	assert.Equal(t, grouping.KindSuperset, groups[1].Kind)
	assert.Equal(t, 1, groups[1].SupersetNumber)
	require.Len(t, groups[1].Exercises, 2)
	assert.Equal(t, "Row", groups[1].Exercises[0].Name)
	assert.Equal(t, "Curl", groups[1].Exercises[1].Name)
	assert.Equal(t, "A", groups[1].Label(0))
	assert.Equal(t, "B", groups[1].Label(1))
	assert.Empty(t, groups[1].Label(2))
}

func TestBuild_Idempotent(t *testing.T) {
	templates := []workout.ExerciseTemplate{
		template("Squat", 0, 0),
		template("Lunge", 1, 2),
		template("Calf", 2, 2),
		template("Press", 3, 5),
		template("Fly", 4, 5),
		template("Plank", 5, 0),
	}

	first := grouping.Build(templates)
	second := grouping.Build(templates)
	assert.Equal(t, first, second)

	// ranging the lazy sequence twice yields the same groups too
	seq := grouping.All(templates)
	var a, b []grouping.Group
	for g := range seq {
		a = append(a, g)
	}
	for g := range seq {
		b = append(b, g)
	}
	assert.Equal(t, a, b)
	assert.Equal(t, first, a)

	numbers := make([]int, 0)
	for _, g := range first {
		if g.IsSuperset() {
			assert.Len(t, g.Exercises, 2)
			assert.Equal(t, g.Exercises[0].Order+1, g.Exercises[1].Order)
			numbers = append(numbers, g.SupersetNumber)
		}
	}
	assert.Equal(t, []int{1, 2}, numbers)
}

func TestBuild_MalformedTagsDegradeToStandalone(t *testing.T) {
	// three exercises share a tag: the first two pair up, the third stands alone
	triple := []workout.ExerciseTemplate{
		template("A", 0, 3),
		template("B", 1, 3),
		template("C", 2, 3),
	}
	groups := grouping.Build(triple)
	require.Len(t, groups, 2)
	assert.True(t, groups[0].IsSuperset())
	assert.False(t, groups[1].IsSuperset())
	assert.Equal(t, "C", groups[1].Exercises[0].Name)

	// non adjacent tags never pair
	split := []workout.ExerciseTemplate{
		template("A", 0, 4),
		template("B", 1, 0),
		template("C", 2, 4),
	}
	groups = grouping.Build(split)
	require.Len(t, groups, 3)
	for _, g := range groups {
		assert.False(t, g.IsSuperset())
	}
}

func TestBuild_EarlyBreak(t *testing.T) {
	templates := []workout.ExerciseTemplate{
		template("A", 0, 0),
		template("B", 1, 0),
		template("C", 2, 0),
	}
	count := 0
	for range grouping.All(templates) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
	assert.Empty(t, grouping.Build(nil))
}

func TestLocate(t *testing.T) {
	bench := template("Bench", 0, 0)
	row := template("Row", 1, 1)
	curl := template("Curl", 2, 1)
	groups := grouping.Build([]workout.ExerciseTemplate{bench, row, curl})

	gi, ei, ok := grouping.Locate(groups, curl.ID)
	require.True(t, ok)
	assert.Equal(t, 1, gi)
	assert.Equal(t, 1, ei)
	assert.True(t, groups[1].Contains(row.ID))

	_, _, ok = grouping.Locate(groups, uuid.New())
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	valid := []workout.ExerciseTemplate{
		template("Bench", 0, 0),
		template("Row", 1, 1),
		template("Curl", 2, 1),
	}
	assert.NoError(t, grouping.Validate(valid))

	triple := []workout.ExerciseTemplate{
		template("A", 0, 1),
		template("B", 1, 1),
		template("C", 2, 1),
	}
	err := grouping.Validate(triple)
	require.Error(t, err)
	assert.True(t, errors.Is(err, grouping.ErrInvalidSuperset))

	lonely := []workout.ExerciseTemplate{template("A", 0, 7)}
	assert.ErrorIs(t, grouping.Validate(lonely), grouping.ErrInvalidSuperset)

	split := []workout.ExerciseTemplate{
		template("A", 0, 2),
		template("B", 1, 0),
		template("C", 2, 2),
	}
	assert.ErrorIs(t, grouping.Validate(split), grouping.ErrInvalidSuperset)

	negative := []workout.ExerciseTemplate{template("A", 0, -1)}
	assert.ErrorIs(t, grouping.Validate(negative), grouping.ErrInvalidSuperset)
}
