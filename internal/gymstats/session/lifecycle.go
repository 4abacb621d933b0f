package session

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/gymsession/internal/gymstats/workout"
	"github.com/2beens/gymsession/internal/telemetry/metrics"
	"github.com/2beens/gymsession/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Starter struct {
	store   workout.Store
	metrics *metrics.Manager
	now     func() time.Time
}

func NewStarter(store workout.Store, metricsManager *metrics.Manager, now func() time.Time) *Starter {
	if now == nil {
		now = time.Now
	}
	return &Starter{
		store:   store,
		metrics: metricsManager,
		now:     now,
	}
}

// Start creates an in-progress session for the day template. The session
// carries the most recently recorded bodyweight, if any.
func (s *Starter) Start(ctx context.Context, dayTemplateID uuid.UUID) (_ *workout.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.start")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	dayTemplate, err := s.store.GetDayTemplate(ctx, dayTemplateID)
	if err != nil {
		return nil, fmt.Errorf("get day template %s: %w", dayTemplateID, err)
	}
	bodyweight, _, err := s.store.LatestBodyweight(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest bodyweight: %w", err)
	}

	now := s.now()
	session := workout.Session{
		ID:             uuid.New(),
		DayTemplateID:  dayTemplate.ID,
		Date:           time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		StartTime:      &now,
		UserBodyweight: bodyweight,
	}
	if err := s.store.Commit(ctx, &workout.ChangeSet{Sessions: []workout.Session{session}}); err != nil {
		return nil, fmt.Errorf("commit new session: %w", err)
	}
	if s.metrics != nil {
		s.metrics.CounterSessionsStarted.Inc()
	}

	log.Infof("session %s started for day [%s]", session.ID, dayTemplate.Name)
	return &session, nil
}

// OrphanPolicy decides when an in-progress session is considered abandoned
// and what end time it gets.
type OrphanPolicy struct {
	StaleAfter        time.Duration
	EstimatedDuration time.Duration
}

func DefaultOrphanPolicy() OrphanPolicy {
	return OrphanPolicy{
		StaleAfter:        6 * time.Hour,
		EstimatedDuration: 3 * time.Hour,
	}
}

type Reconciler struct {
	store   workout.Store
	policy  OrphanPolicy
	metrics *metrics.Manager
	now     func() time.Time
}

func NewReconciler(store workout.Store, policy OrphanPolicy, metricsManager *metrics.Manager, now func() time.Time) *Reconciler {
	defaults := DefaultOrphanPolicy()
	if policy.StaleAfter <= 0 {
		policy.StaleAfter = defaults.StaleAfter
	}
	if policy.EstimatedDuration <= 0 {
		policy.EstimatedDuration = defaults.EstimatedDuration
	}
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		store:   store,
		policy:  policy,
		metrics: metricsManager,
		now:     now,
	}
}

// CloseOrphans ends every in-progress session started longer than StaleAfter
// ago, setting its end time to the start plus EstimatedDuration. Newer
// sessions are left alone. All closures are committed together.
func (r *Reconciler) CloseOrphans(ctx context.Context) (_ []workout.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.reconcile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	inProgress, err := r.store.ListInProgressSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list in progress sessions: %w", err)
	}

	cutoff := r.now().Add(-r.policy.StaleAfter)
	var closed []workout.Session
	for _, s := range inProgress {
		if s.StartTime == nil || !s.StartTime.Before(cutoff) {
			continue
		}
		end := s.StartTime.Add(r.policy.EstimatedDuration)
		s.EndTime = &end
		closed = append(closed, s)
	}
	if len(closed) == 0 {
		return nil, nil
	}

	if err := r.store.Commit(ctx, &workout.ChangeSet{Sessions: closed}); err != nil {
		return nil, fmt.Errorf("commit orphan sessions: %w", err)
	}
	if r.metrics != nil {
		r.metrics.CounterOrphanSessionsClosed.Add(float64(len(closed)))
	}
	for _, s := range closed {
		log.Infof("closed orphan session %s started at %s", s.ID, s.StartTime.Format(time.RFC3339))
	}
	return closed, nil
}
