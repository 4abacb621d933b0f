package session

import (
	"github.com/2beens/gymsession/internal/gymstats/grouping"
	"github.com/2beens/gymsession/internal/gymstats/resttimer"
	"github.com/2beens/gymsession/internal/gymstats/units"
	"github.com/2beens/gymsession/internal/gymstats/workout"

	"github.com/google/uuid"
)

type SetView struct {
	ID              uuid.UUID `json:"id"`
	Round           int       `json:"round"`
	Weight          float64   `json:"weight"`
	ExtraWeight     float64   `json:"extraWeight"`
	Reps            int       `json:"reps"`
	IsBodyweight    bool      `json:"isBodyweight"`
	IsCompleted     bool      `json:"isCompleted"`
	IsDropSet       bool      `json:"isDropSet"`
	EffectiveWeight string    `json:"effectiveWeight"`
}

type ExerciseView struct {
	TemplateID  uuid.UUID `json:"exerciseTemplateId"`
	Name        string    `json:"name"`
	MuscleGroup string    `json:"muscleGroup"`
	Notes       string    `json:"notes"`
	Label       string    `json:"label,omitempty"`
	Sets        []SetView `json:"sets"`
}

type GroupView struct {
	Kind           grouping.Kind  `json:"kind"`
	SupersetNumber int            `json:"supersetNumber,omitempty"`
	Rounds         int            `json:"rounds"`
	Exercises      []ExerciseView `json:"exercises"`
}

// SessionView is the full client-facing state of a session. Weights are
// expressed in Unit.
type SessionView struct {
	Session        workout.Session    `json:"session"`
	DayName        string             `json:"dayName"`
	Unit           units.Unit         `json:"unit"`
	Groups         []GroupView        `json:"groups"`
	Cursor         Cursor             `json:"cursor"`
	HasExercises   bool               `json:"hasExercises"`
	Rest           resttimer.Snapshot `json:"rest"`
	ElapsedDisplay string             `json:"elapsed"`
	CanGoNext      bool               `json:"canGoNext"`
	CanGoPrevious  bool               `json:"canGoPrevious"`
	IsLastGroup    bool               `json:"isLastGroup"`
	CanDelete      bool               `json:"canDeleteCurrent"`
	Finished       bool               `json:"finished"`
}

func (c *Controller) View(unit units.Unit) SessionView {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !unit.IsValid() {
		unit = units.Kilograms
	}

	view := SessionView{
		Session:        c.session,
		DayName:        c.dayTemplate.Name,
		Unit:           unit,
		Groups:         make([]GroupView, 0, len(c.groups)),
		Cursor:         c.cursor,
		HasExercises:   len(c.groups) > 0,
		Rest:           c.timer.Snapshot(),
		ElapsedDisplay: units.FormatElapsed(c.elapsed()),
		CanGoNext:      c.canGoNext(),
		CanGoPrevious:  c.canGoPrevious(),
		IsLastGroup:    !c.canGoNext(),
		Finished:       c.finished,
	}
	_, view.CanDelete = c.deletableCurrent()

	for _, g := range c.groups {
		gv := GroupView{
			Kind:           g.Kind,
			SupersetNumber: g.SupersetNumber,
			Rounds:         c.rounds(g),
		}
		for i, et := range g.Exercises {
			ev := ExerciseView{
				TemplateID:  et.ID,
				Name:        et.Name,
				MuscleGroup: et.MuscleGroup,
				Notes:       et.Notes,
				Label:       g.Label(i),
			}
			for round, s := range c.setsOf(et.ID) {
				ev.Sets = append(ev.Sets, SetView{
					ID:              s.ID,
					Round:           round,
					Weight:          units.Round(units.FromStorage(s.Weight, unit)),
					ExtraWeight:     units.Round(units.FromStorage(s.ExtraWeight, unit)),
					Reps:            s.Reps,
					IsBodyweight:    s.IsBodyweight,
					IsCompleted:     s.IsCompleted,
					IsDropSet:       s.IsDropSet(),
					EffectiveWeight: units.FormatWeight(s.EffectiveWeight(c.session.UserBodyweight), unit),
				})
			}
			gv.Exercises = append(gv.Exercises, ev)
		}
		view.Groups = append(view.Groups, gv)
	}
	return view
}
