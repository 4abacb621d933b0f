package session

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/gymsession/internal/gymstats/grouping"
	"github.com/2beens/gymsession/internal/gymstats/workout"
	"github.com/2beens/gymsession/internal/telemetry/tracing"

	"github.com/google/uuid"
)

const FieldWeight = "weight"

// SetInput carries the fields edited on a set. Nil fields are left as they are.
// Weights are in kilograms.
type SetInput struct {
	Weight       *float64 `json:"weight,omitempty"`
	Reps         *int     `json:"reps,omitempty"`
	IsBodyweight *bool    `json:"isBodyweight,omitempty"`
	ExtraWeight  *float64 `json:"extraWeight,omitempty"`
}

// Focus tells the client which input field to move to.
type Focus struct {
	SetID      uuid.UUID `json:"setId"`
	TemplateID uuid.UUID `json:"exerciseTemplateId"`
	Round      int       `json:"round"`
	Field      string    `json:"field"`
}

type InputResult struct {
	Set             workout.ExerciseSet `json:"set"`
	BecameCompleted bool                `json:"becameCompleted"`
	TimerStarted    bool                `json:"timerStarted"`
	Focus           *Focus              `json:"focus,omitempty"`
}

func (in SetInput) validate() error {
	if in.Weight != nil && *in.Weight < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidInput)
	}
	if in.ExtraWeight != nil && *in.ExtraWeight < 0 {
		return fmt.Errorf("%w: negative extra weight", ErrInvalidInput)
	}
	if in.Reps != nil && *in.Reps < 0 {
		return fmt.Errorf("%w: negative reps", ErrInvalidInput)
	}
	return nil
}

// RecordSetInput applies the input to the set in memory and queues it for the
// debounced commit. When the set turns completed, the rest timer and focus
// follow the standalone or superset flow. The input stays applied even if
// starting the rest timer fails; that error is returned with the result.
func (c *Controller) RecordSetInput(ctx context.Context, setID uuid.UUID, in SetInput) (_ InputResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.set.input")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.checkActive(); err != nil {
		return InputResult{}, err
	}
	if err := in.validate(); err != nil {
		return InputResult{}, err
	}
	templateID, idx, ok := c.findSet(setID)
	if !ok {
		return InputResult{}, fmt.Errorf("%w: set %s", ErrInvalidTarget, setID)
	}

	ceID := c.completed[templateID].ID
	set := c.sets[ceID][idx]
	wasCompleted := set.IsCompleted

	if in.IsBodyweight != nil {
		set.SetBodyweight(*in.IsBodyweight)
	}
	if in.Weight != nil {
		set.Weight = *in.Weight
	}
	if in.ExtraWeight != nil {
		set.ExtraWeight = *in.ExtraWeight
	}
	if in.Reps != nil {
		set.Reps = *in.Reps
	}
	set.Refresh()

	c.sets[ceID][idx] = set
	c.writes.Put(set)

	result := InputResult{Set: set}
	if wasCompleted || !set.IsCompleted {
		return result, nil
	}

	result.BecameCompleted = true
	c.sink.SetCompleted(c.session.ID)

	gi, ei, ok := grouping.Locate(c.groups, templateID)
	if !ok {
		return result, nil
	}
	group := c.groups[gi]

	if group.IsSuperset() {
		partner := group.Exercises[1-ei]
		partnerSets := c.setsOf(partner.ID)
		if idx < len(partnerSets) && !partnerSets[idx].IsCompleted {
			result.Focus = &Focus{
				SetID:      partnerSets[idx].ID,
				TemplateID: partner.ID,
				Round:      idx,
				Field:      FieldWeight,
			}
			return result, nil
		}
		result.Focus = c.nextSupersetFocus(group, idx)
	} else {
		result.Focus = c.nextStandaloneFocus(templateID, idx)
	}

	if err := c.timer.Start(ctx, c.restFor(set)); err != nil {
		return result, fmt.Errorf("%w: %w", ErrRestTimer, err)
	}
	result.TimerStarted = true
	return result, nil
}

func (c *Controller) restFor(set workout.ExerciseSet) time.Duration {
	if set.RestSeconds > 0 {
		return time.Duration(set.RestSeconds) * time.Second
	}
	return c.defaultRest
}

func (c *Controller) nextStandaloneFocus(templateID uuid.UUID, idx int) *Focus {
	sets := c.setsOf(templateID)
	for i := idx + 1; i < len(sets); i++ {
		if !sets[i].IsCompleted {
			return &Focus{SetID: sets[i].ID, TemplateID: templateID, Round: i, Field: FieldWeight}
		}
	}
	return nil
}

// nextSupersetFocus finds the first incomplete set in the rounds after round,
// exercise A before B within a round.
func (c *Controller) nextSupersetFocus(group grouping.Group, round int) *Focus {
	for r := round + 1; r < c.rounds(group); r++ {
		for _, et := range group.Exercises {
			sets := c.setsOf(et.ID)
			if r < len(sets) && !sets[r].IsCompleted {
				return &Focus{SetID: sets[r].ID, TemplateID: et.ID, Round: r, Field: FieldWeight}
			}
		}
	}
	return nil
}
