package grouping

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sort"

	"github.com/2beens/gymsession/internal/gymstats/workout"

	"github.com/google/uuid"
)

var ErrInvalidSuperset = errors.New("invalid superset layout")

type Kind string

const (
	KindStandalone Kind = "standalone"
	KindSuperset   Kind = "superset"
)

// Group is either a single standalone exercise or a superset pair.
type Group struct {
	Kind           Kind                       `json:"kind"`
	SupersetNumber int                        `json:"supersetNumber,omitempty"`
	Exercises      []workout.ExerciseTemplate `json:"exercises"`
}

func (g Group) IsSuperset() bool {
	return g.Kind == KindSuperset
}

// Label returns the display label of the i-th exercise in a superset ("A", "B").
// Standalone exercises have no label.
func (g Group) Label(i int) string {
	if !g.IsSuperset() || i < 0 || i >= len(g.Exercises) {
		return ""
	}
	return string(rune('A' + i))
}

func (g Group) Contains(templateID uuid.UUID) bool {
	return slices.ContainsFunc(g.Exercises, func(et workout.ExerciseTemplate) bool {
		return et.ID == templateID
	})
}

// All yields the groups of the given templates in template order. The
// sequence holds no state and can be ranged over any number of times.
func All(templates []workout.ExerciseTemplate) iter.Seq[Group] {
	return func(yield func(Group) bool) {
		ordered := sortByOrder(templates)
		supersetNumber := 0
		for i := 0; i < len(ordered); {
			current := ordered[i]
			if current.SupersetGroup > 0 && i+1 < len(ordered) && ordered[i+1].SupersetGroup == current.SupersetGroup {
				supersetNumber++
				g := Group{
					Kind:           KindSuperset,
					SupersetNumber: supersetNumber,
					Exercises:      []workout.ExerciseTemplate{current, ordered[i+1]},
				}
				if !yield(g) {
					return
				}
				i += 2
				continue
			}

			if !yield(Group{Kind: KindStandalone, Exercises: []workout.ExerciseTemplate{current}}) {
				return
			}
			i++
		}
	}
}

func Build(templates []workout.ExerciseTemplate) []Group {
	return slices.Collect(All(templates))
}

// Locate returns the group and in-group index holding the template.
func Locate(groups []Group, templateID uuid.UUID) (groupIdx, exerciseIdx int, ok bool) {
	for gi, g := range groups {
		for ei, et := range g.Exercises {
			if et.ID == templateID {
				return gi, ei, true
			}
		}
	}
	return -1, -1, false
}

// Validate checks that every non-zero superset tag is shared by exactly two
// templates that are adjacent in order.
func Validate(templates []workout.ExerciseTemplate) error {
	ordered := sortByOrder(templates)
	positions := make(map[int][]int)
	for i, et := range ordered {
		if et.SupersetGroup < 0 {
			return fmt.Errorf("%w: exercise [%s] has negative superset group %d", ErrInvalidSuperset, et.Name, et.SupersetGroup)
		}
		if et.SupersetGroup > 0 {
			positions[et.SupersetGroup] = append(positions[et.SupersetGroup], i)
		}
	}

	tags := make([]int, 0, len(positions))
	for tag := range positions {
		tags = append(tags, tag)
	}
	sort.Ints(tags)

	for _, tag := range tags {
		pos := positions[tag]
		if len(pos) != 2 {
			return fmt.Errorf("%w: superset group %d has %d exercises, expected 2", ErrInvalidSuperset, tag, len(pos))
		}
		if pos[1] != pos[0]+1 {
			return fmt.Errorf("%w: superset group %d exercises are not adjacent", ErrInvalidSuperset, tag)
		}
	}
	return nil
}

func sortByOrder(templates []workout.ExerciseTemplate) []workout.ExerciseTemplate {
	ordered := slices.Clone(templates)
	slices.SortStableFunc(ordered, func(a, b workout.ExerciseTemplate) int {
		return a.Order - b.Order
	})
	return ordered
}
