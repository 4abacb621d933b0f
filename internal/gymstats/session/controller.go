package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/2beens/gymsession/internal/gymstats/feedback"
	"github.com/2beens/gymsession/internal/gymstats/grouping"
	"github.com/2beens/gymsession/internal/gymstats/resttimer"
	"github.com/2beens/gymsession/internal/gymstats/workout"
	"github.com/2beens/gymsession/internal/kv"
	"github.com/2beens/gymsession/internal/notify"
	"github.com/2beens/gymsession/internal/telemetry/metrics"
	"github.com/2beens/gymsession/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	ErrSessionFinished = errors.New("session is finished")
	ErrNotInProgress   = errors.New("session is not in progress")
	ErrInvalidTarget   = errors.New("invalid target")
	ErrInvalidInput    = errors.New("invalid input")
	ErrRestTimer       = errors.New("rest timer failed")
)

// Deps are the collaborators of a session controller.
type Deps struct {
	Store     workout.Store
	KV        kv.Store
	Scheduler notify.Scheduler
	Sink      feedback.Sink
	Metrics   *metrics.Manager
	Now       func() time.Time

	// DebounceDelay is the quiet period before set input is committed.
	DebounceDelay time.Duration
	// DefaultRest is used when a rest is started without an explicit duration.
	DefaultRest time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Sink == nil {
		d.Sink = feedback.Nop{}
	}
	if d.DebounceDelay <= 0 {
		d.DebounceDelay = DefaultDebounceDelay
	}
	if d.DefaultRest <= 0 {
		d.DefaultRest = resttimer.DefaultDuration
	}
	return d
}

// Controller drives one in-progress workout session: the cursor over the
// exercise groups, set input, structural edits and the rest timer. Every
// method is serialized on the controller mutex.
type Controller struct {
	mutex sync.Mutex

	store       workout.Store
	kv          kv.Store
	sink        feedback.Sink
	metrics     *metrics.Manager
	now         func() time.Time
	defaultRest time.Duration

	session     workout.Session
	dayTemplate workout.DayTemplate
	templates   []workout.ExerciseTemplate
	// completed exercises by template id
	completed map[uuid.UUID]workout.CompletedExercise
	// sets by completed exercise id, ordered
	sets   map[uuid.UUID][]workout.ExerciseSet
	groups []grouping.Group
	cursor Cursor

	timer    *resttimer.Timer
	writes   *writeBehind
	finished bool
}

// Attach loads an in-progress session and prepares it for the workout:
// missing exercises and sets are created, the cursor and rest timer are
// restored.
func Attach(ctx context.Context, deps Deps, sessionID uuid.UUID) (_ *Controller, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.attach")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	deps = deps.withDefaults()

	session, err := deps.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if !session.IsInProgress() {
		return nil, fmt.Errorf("%w: %s", ErrNotInProgress, sessionID)
	}

	dayTemplate, err := deps.Store.GetDayTemplate(ctx, session.DayTemplateID)
	if err != nil {
		return nil, fmt.Errorf("get day template %s: %w", session.DayTemplateID, err)
	}
	templates, err := deps.Store.ListExerciseTemplates(ctx, dayTemplate.ID)
	if err != nil {
		return nil, fmt.Errorf("list exercise templates: %w", err)
	}
	completedExercises, err := deps.Store.ListCompletedExercises(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list completed exercises: %w", err)
	}

	c := &Controller{
		store:       deps.Store,
		kv:          deps.KV,
		sink:        deps.Sink,
		metrics:     deps.Metrics,
		now:         deps.Now,
		defaultRest: deps.DefaultRest,
		session:     *session,
		dayTemplate: *dayTemplate,
		templates:   templates,
		completed:   make(map[uuid.UUID]workout.CompletedExercise, len(completedExercises)),
		sets:        make(map[uuid.UUID][]workout.ExerciseSet, len(completedExercises)),
	}
	for _, ce := range completedExercises {
		sets, err := deps.Store.ListSets(ctx, ce.ID)
		if err != nil {
			return nil, fmt.Errorf("list sets of %s: %w", ce.ID, err)
		}
		c.completed[ce.ExerciseTemplateID] = ce
		c.sets[ce.ID] = sets
	}
	c.regroup()

	c.writes = newWriteBehind(deps.Store, deps.DebounceDelay, func(err error) {
		log.Errorf("session %s: commit set input: %s", sessionID, err)
		if c.metrics != nil {
			c.metrics.CounterCommitFailures.Inc()
		}
	})
	c.timer = resttimer.New(resttimer.Params{
		SessionID: session.ID,
		Store:     deps.KV,
		Scheduler: deps.Scheduler,
		Sink:      deps.Sink,
		Metrics:   deps.Metrics,
		Now:       deps.Now,
	})

	if err := c.setup(ctx); err != nil {
		return nil, err
	}
	if err := c.restoreCursor(ctx); err != nil {
		log.Errorf("session %s: %s", sessionID, err)
	}
	if err := c.timer.Restore(ctx); err != nil {
		log.Errorf("session %s: restore rest timer: %s", sessionID, err)
	}

	return c, nil
}

func (c *Controller) SessionID() uuid.UUID {
	return c.session.ID
}

func (c *Controller) Session() workout.Session {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.session
}

func (c *Controller) IsFinished() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.finished
}

// Setup makes sure every exercise template has a completed exercise with at
// least its target number of sets. Existing rows are never touched, so it is
// safe to call any number of times.
func (c *Controller) Setup(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.finished {
		return ErrSessionFinished
	}
	return c.setup(ctx)
}

func (c *Controller) setup(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.setup")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cs := &workout.ChangeSet{}
	newCompleted := make(map[uuid.UUID]workout.CompletedExercise)
	newSets := make(map[uuid.UUID][]workout.ExerciseSet)

	for _, et := range c.templates {
		ce, ok := c.completed[et.ID]
		if !ok {
			ce = workout.CompletedExercise{
				ID:                 uuid.New(),
				SessionID:          c.session.ID,
				ExerciseTemplateID: et.ID,
			}
			cs.CompletedExercises = append(cs.CompletedExercises, ce)
			newCompleted[et.ID] = ce
		}

		existing := c.sets[ce.ID]
		nextOrder := 0
		if len(existing) > 0 {
			nextOrder = existing[len(existing)-1].Order + 1
		}
		for i := len(existing); i < et.TargetSets; i++ {
			set := workout.NewEmptySet(ce.ID, nextOrder)
			nextOrder++
			cs.Sets = append(cs.Sets, set)
			newSets[ce.ID] = append(newSets[ce.ID], set)
		}
	}

	if cs.IsEmpty() {
		return nil
	}
	if err := c.store.Commit(ctx, cs); err != nil {
		log.Errorf("session %s: setup failed: %s", c.session.ID, err)
		return fmt.Errorf("commit session setup: %w", err)
	}

	for templateID, ce := range newCompleted {
		c.completed[templateID] = ce
	}
	for ceID, sets := range newSets {
		c.sets[ceID] = append(c.sets[ceID], sets...)
	}
	log.Debugf("session %s: setup created %d exercises and %d sets", c.session.ID, len(cs.CompletedExercises), len(cs.Sets))
	return nil
}

// Flush commits pending set input right away.
func (c *Controller) Flush(ctx context.Context) error {
	if err := c.writes.Flush(ctx); err != nil {
		return fmt.Errorf("flush set input: %w", err)
	}
	return nil
}

// Close flushes pending writes and stops the debounce timer.
func (c *Controller) Close(ctx context.Context) error {
	if err := c.writes.Close(ctx); err != nil {
		return fmt.Errorf("flush set input: %w", err)
	}
	return nil
}

func (c *Controller) regroup() {
	slices.SortStableFunc(c.templates, func(a, b workout.ExerciseTemplate) int {
		return a.Order - b.Order
	})
	c.groups = grouping.Build(c.templates)
	c.clampCursor()
}

func (c *Controller) template(id uuid.UUID) (workout.ExerciseTemplate, bool) {
	for _, et := range c.templates {
		if et.ID == id {
			return et, true
		}
	}
	return workout.ExerciseTemplate{}, false
}

// setsOf returns the ordered sets of the exercise template in this session.
func (c *Controller) setsOf(templateID uuid.UUID) []workout.ExerciseSet {
	ce, ok := c.completed[templateID]
	if !ok {
		return nil
	}
	return c.sets[ce.ID]
}

// findSet locates a set by id: the owning template and the set's index,
// which is also its round.
func (c *Controller) findSet(setID uuid.UUID) (templateID uuid.UUID, idx int, ok bool) {
	for tID, ce := range c.completed {
		for i, s := range c.sets[ce.ID] {
			if s.ID == setID {
				return tID, i, true
			}
		}
	}
	return uuid.Nil, -1, false
}

func (c *Controller) checkActive() error {
	if c.finished {
		return ErrSessionFinished
	}
	return nil
}
