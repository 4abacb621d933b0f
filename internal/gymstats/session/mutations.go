package session

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/2beens/gymsession/internal/gymstats/grouping"
	"github.com/2beens/gymsession/internal/gymstats/workout"
	"github.com/2beens/gymsession/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// deletableTail is how many of the last exercises by order can be removed
// during a workout.
const deletableTail = 3

type NewExercise struct {
	Name        string `json:"name"`
	MuscleGroup string `json:"muscleGroup"`
	Notes       string `json:"notes"`
	TargetSets  int    `json:"targetSets"`
}

// AddExercise appends a standalone exercise to the day template and creates
// its completed exercise and empty sets in one commit. The cursor moves to
// the new exercise.
func (c *Controller) AddExercise(ctx context.Context, ne NewExercise) (_ workout.ExerciseTemplate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.exercise.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.checkActive(); err != nil {
		return workout.ExerciseTemplate{}, err
	}
	ne.Name = strings.TrimSpace(ne.Name)
	if ne.Name == "" {
		return workout.ExerciseTemplate{}, fmt.Errorf("%w: exercise name is empty", ErrInvalidInput)
	}
	if ne.TargetSets < 1 {
		return workout.ExerciseTemplate{}, fmt.Errorf("%w: target sets must be at least 1", ErrInvalidInput)
	}
	if err := c.Flush(ctx); err != nil {
		return workout.ExerciseTemplate{}, err
	}

	order := 0
	if len(c.templates) > 0 {
		order = c.templates[len(c.templates)-1].Order + 1
	}
	et := workout.ExerciseTemplate{
		ID:            uuid.New(),
		DayTemplateID: c.dayTemplate.ID,
		Name:          ne.Name,
		MuscleGroup:   ne.MuscleGroup,
		Notes:         ne.Notes,
		Order:         order,
		TargetSets:    ne.TargetSets,
	}
	ce := workout.CompletedExercise{
		ID:                 uuid.New(),
		SessionID:          c.session.ID,
		ExerciseTemplateID: et.ID,
	}
	sets := make([]workout.ExerciseSet, 0, et.TargetSets)
	for i := range et.TargetSets {
		sets = append(sets, workout.NewEmptySet(ce.ID, i))
	}

	cs := &workout.ChangeSet{
		ExerciseTemplates:  []workout.ExerciseTemplate{et},
		CompletedExercises: []workout.CompletedExercise{ce},
		Sets:               sets,
	}
	if err := c.store.Commit(ctx, cs); err != nil {
		return workout.ExerciseTemplate{}, fmt.Errorf("commit new exercise: %w", err)
	}

	c.templates = append(c.templates, et)
	c.completed[et.ID] = ce
	c.sets[ce.ID] = sets
	c.regroup()
	c.moveCursor(ctx, Cursor{Group: len(c.groups) - 1})

	log.Debugf("session %s: added exercise [%s] with %d sets", c.session.ID, et.Name, et.TargetSets)
	return et, nil
}

// CanDeleteCurrentExercise reports whether the exercise under the cursor may
// be deleted: it must be among the last exercises by order and must not be
// the only exercise of the day.
func (c *Controller) CanDeleteCurrentExercise() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, ok := c.deletableCurrent()
	return ok
}

func (c *Controller) deletableCurrent() (workout.ExerciseTemplate, bool) {
	if c.finished || len(c.groups) == 0 || len(c.templates) <= 1 {
		return workout.ExerciseTemplate{}, false
	}
	current := c.groups[c.cursor.Group].Exercises[c.cursor.Exercise]
	// templates are kept sorted by order
	tail := c.templates[max(0, len(c.templates)-deletableTail):]
	if !slices.ContainsFunc(tail, func(et workout.ExerciseTemplate) bool { return et.ID == current.ID }) {
		return workout.ExerciseTemplate{}, false
	}
	return current, true
}

// DeleteCurrentExercise removes the exercise under the cursor together with
// its completed exercise and sets. Remaining orders are not renumbered.
// It reports false, without error, when the deletion is not allowed.
func (c *Controller) DeleteCurrentExercise(ctx context.Context) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.exercise.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.checkActive(); err != nil {
		return false, err
	}
	et, ok := c.deletableCurrent()
	if !ok {
		return false, nil
	}
	if err := c.Flush(ctx); err != nil {
		return false, err
	}

	cs := &workout.ChangeSet{DeletedExerciseTemplates: []uuid.UUID{et.ID}}
	ce, hasCompleted := c.completed[et.ID]
	var setIDs []uuid.UUID
	if hasCompleted {
		for _, s := range c.sets[ce.ID] {
			setIDs = append(setIDs, s.ID)
		}
		cs.DeletedSets = setIDs
		cs.DeletedCompletedExercises = []uuid.UUID{ce.ID}
	}
	if err := c.store.Commit(ctx, cs); err != nil {
		return false, fmt.Errorf("commit exercise deletion: %w", err)
	}

	c.writes.Drop(setIDs...)
	if hasCompleted {
		delete(c.sets, ce.ID)
		delete(c.completed, et.ID)
	}
	c.templates = slices.DeleteFunc(c.templates, func(t workout.ExerciseTemplate) bool { return t.ID == et.ID })
	c.regroup()
	c.moveCursor(ctx, c.cursor)

	log.Debugf("session %s: deleted exercise [%s]", c.session.ID, et.Name)
	return true, nil
}

// AddRound appends one empty set to each exercise of a superset, leveling
// both sides to the same number of rounds.
func (c *Controller) AddRound(ctx context.Context, groupIdx int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.round.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	group, err := c.supersetAt(groupIdx)
	if err != nil {
		return err
	}
	if err := c.Flush(ctx); err != nil {
		return err
	}

	rounds := c.rounds(group) + 1
	cs := &workout.ChangeSet{}
	added := make(map[uuid.UUID][]workout.ExerciseSet)
	for _, et := range group.Exercises {
		ce := c.completed[et.ID]
		sets := c.sets[ce.ID]
		nextOrder := 0
		if len(sets) > 0 {
			nextOrder = sets[len(sets)-1].Order + 1
		}
		for i := len(sets); i < rounds; i++ {
			set := workout.NewEmptySet(ce.ID, nextOrder)
			nextOrder++
			cs.Sets = append(cs.Sets, set)
			added[ce.ID] = append(added[ce.ID], set)
		}
	}
	if err := c.store.Commit(ctx, cs); err != nil {
		return fmt.Errorf("commit new round: %w", err)
	}
	for ceID, sets := range added {
		c.sets[ceID] = append(c.sets[ceID], sets...)
	}
	return nil
}

// RemoveRound drops the last round of a superset from both exercises. It
// reports false when only one round is left.
func (c *Controller) RemoveRound(ctx context.Context, groupIdx int) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.round.remove")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	group, err := c.supersetAt(groupIdx)
	if err != nil {
		return false, err
	}
	rounds := c.rounds(group)
	if rounds < 2 {
		return false, nil
	}
	if err := c.Flush(ctx); err != nil {
		return false, err
	}

	keep := rounds - 1
	cs := &workout.ChangeSet{}
	for _, et := range group.Exercises {
		sets := c.setsOf(et.ID)
		for i := keep; i < len(sets); i++ {
			cs.DeletedSets = append(cs.DeletedSets, sets[i].ID)
		}
	}
	if err := c.store.Commit(ctx, cs); err != nil {
		return false, fmt.Errorf("commit round removal: %w", err)
	}

	c.writes.Drop(cs.DeletedSets...)
	for _, et := range group.Exercises {
		ce := c.completed[et.ID]
		if len(c.sets[ce.ID]) > keep {
			c.sets[ce.ID] = c.sets[ce.ID][:keep]
		}
	}
	return true, nil
}

// AddSet appends an empty set to a standalone exercise.
func (c *Controller) AddSet(ctx context.Context, templateID uuid.UUID) (_ workout.ExerciseSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.set.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	ce, err := c.standaloneCompleted(templateID)
	if err != nil {
		return workout.ExerciseSet{}, err
	}

	sets := c.sets[ce.ID]
	nextOrder := 0
	if len(sets) > 0 {
		nextOrder = sets[len(sets)-1].Order + 1
	}
	set := workout.NewEmptySet(ce.ID, nextOrder)
	if err := c.store.Commit(ctx, &workout.ChangeSet{Sets: []workout.ExerciseSet{set}}); err != nil {
		return workout.ExerciseSet{}, fmt.Errorf("commit new set: %w", err)
	}
	c.sets[ce.ID] = append(sets, set)
	return set, nil
}

// RemoveSet deletes the last set of a standalone exercise. It reports false
// when only one set is left.
func (c *Controller) RemoveSet(ctx context.Context, templateID uuid.UUID) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.set.remove")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	ce, err := c.standaloneCompleted(templateID)
	if err != nil {
		return false, err
	}
	sets := c.sets[ce.ID]
	if len(sets) < 2 {
		return false, nil
	}
	if err := c.Flush(ctx); err != nil {
		return false, err
	}

	last := sets[len(sets)-1]
	if err := c.store.Commit(ctx, &workout.ChangeSet{DeletedSets: []uuid.UUID{last.ID}}); err != nil {
		return false, fmt.Errorf("commit set removal: %w", err)
	}
	c.writes.Drop(last.ID)
	c.sets[ce.ID] = sets[:len(sets)-1]
	return true, nil
}

func (c *Controller) supersetAt(groupIdx int) (grouping.Group, error) {
	if err := c.checkActive(); err != nil {
		return grouping.Group{}, err
	}
	if groupIdx < 0 || groupIdx >= len(c.groups) {
		return grouping.Group{}, fmt.Errorf("%w: group %d", ErrInvalidTarget, groupIdx)
	}
	group := c.groups[groupIdx]
	if !group.IsSuperset() {
		return grouping.Group{}, fmt.Errorf("%w: group %d is not a superset", ErrInvalidTarget, groupIdx)
	}
	return group, nil
}

func (c *Controller) standaloneCompleted(templateID uuid.UUID) (workout.CompletedExercise, error) {
	if err := c.checkActive(); err != nil {
		return workout.CompletedExercise{}, err
	}
	gi, _, ok := grouping.Locate(c.groups, templateID)
	if !ok {
		return workout.CompletedExercise{}, fmt.Errorf("%w: exercise %s", ErrInvalidTarget, templateID)
	}
	if c.groups[gi].IsSuperset() {
		return workout.CompletedExercise{}, fmt.Errorf("%w: exercise %s is in a superset, use rounds", ErrInvalidTarget, templateID)
	}
	ce, ok := c.completed[templateID]
	if !ok {
		return workout.CompletedExercise{}, fmt.Errorf("%w: exercise %s has no sets", ErrInvalidTarget, templateID)
	}
	return ce, nil
}

func (c *Controller) rounds(group grouping.Group) int {
	rounds := 0
	for _, et := range group.Exercises {
		rounds = max(rounds, len(c.setsOf(et.ID)))
	}
	return rounds
}
