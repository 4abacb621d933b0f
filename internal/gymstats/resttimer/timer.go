package resttimer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/2beens/gymsession/internal/gymstats/feedback"
	"github.com/2beens/gymsession/internal/gymstats/units"
	"github.com/2beens/gymsession/internal/kv"
	"github.com/2beens/gymsession/internal/notify"
	"github.com/2beens/gymsession/internal/telemetry/metrics"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// StorageKey holds the single persisted timer record.
const StorageKey = kv.KeyPrefix + "rest-timer"

const DefaultDuration = 90 * time.Second

var ErrInvalidDuration = errors.New("rest duration must be positive")

// milestones are the seconds-remaining marks that emit feedback, once per run.
var milestones = []int{10, 3, 2, 1}

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// record is the durable anchor of a running timer. The end time is always
// derived as StartTime + DurationSeconds.
type record struct {
	Active          bool      `json:"active"`
	StartTime       time.Time `json:"startTime"`
	DurationSeconds float64   `json:"durationSeconds"`
	SessionID       uuid.UUID `json:"sessionId"`
	NotificationID  string    `json:"notificationId,omitempty"`
}

func (r record) endTime() time.Time {
	return r.StartTime.Add(secondsToDuration(r.DurationSeconds))
}

type Snapshot struct {
	State            State      `json:"state"`
	Remaining        float64    `json:"remainingSeconds"`
	Total            float64    `json:"totalSeconds"`
	Display          string     `json:"display"`
	EndTime          *time.Time `json:"endTime,omitempty"`
	CompletedThisRun bool       `json:"completed,omitempty"`
}

type Params struct {
	SessionID uuid.UUID
	Store     kv.Store
	Scheduler notify.Scheduler
	Sink      feedback.Sink
	Metrics   *metrics.Manager
	Now       func() time.Time
}

// Timer is the rest timer of one workout session. It ticks from wall-clock
// anchors only; nothing runs in the background. Not safe for concurrent use,
// the owning session controller serializes access.
type Timer struct {
	sessionID uuid.UUID
	store     kv.Store
	scheduler notify.Scheduler
	sink      feedback.Sink
	metrics   *metrics.Manager
	now       func() time.Time

	state          State
	startTime      time.Time
	duration       time.Duration
	remaining      time.Duration // while paused
	notificationID string
	firedMarks     map[int]bool
}

func New(params Params) *Timer {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	sink := params.Sink
	if sink == nil {
		sink = feedback.Nop{}
	}
	return &Timer{
		sessionID:  params.SessionID,
		store:      params.Store,
		scheduler:  params.Scheduler,
		sink:       sink,
		metrics:    params.Metrics,
		now:        now,
		state:      StateIdle,
		firedMarks: make(map[int]bool),
	}
}

func (t *Timer) State() State {
	return t.state
}

func (t *Timer) endTime() time.Time {
	return t.startTime.Add(t.duration)
}

// NotificationID returns the id of the scheduled completion notification, if any.
func (t *Timer) NotificationID() string {
	return t.notificationID
}

// Start begins a new run of duration d from any state.
func (t *Timer) Start(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ErrInvalidDuration
	}

	t.cancelNotification(ctx)

	t.state = StateRunning
	t.startTime = t.now()
	t.duration = d
	t.remaining = 0
	t.firedMarks = make(map[int]bool)
	t.countEvent("started")

	var errs []error
	id, err := t.scheduler.Schedule(ctx, t.endTime(), notify.Payload{
		Type:      notify.RestTimerComplete,
		SessionID: t.sessionID,
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("schedule rest notification: %w", err))
	} else {
		t.notificationID = id
	}

	if err := t.persist(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Reset restarts the timer with d. From idle it behaves like Start.
func (t *Timer) Reset(ctx context.Context, d time.Duration) error {
	return t.Start(ctx, d)
}

// Pause freezes the remaining time. The persisted record is dropped; a paused
// timer does not survive the app being killed.
func (t *Timer) Pause(ctx context.Context) error {
	if t.state != StateRunning {
		return nil
	}

	remaining := t.remainingAt(t.now())
	if remaining <= 0 {
		return t.Complete(ctx)
	}

	t.cancelNotification(ctx)
	t.state = StatePaused
	t.remaining = remaining
	t.countEvent("paused")

	return t.clear(ctx)
}

// Resume continues a paused timer with its frozen remaining time.
func (t *Timer) Resume(ctx context.Context) error {
	if t.state != StatePaused {
		return nil
	}
	fired := t.firedMarks
	if err := t.Start(ctx, t.remaining); err != nil {
		t.firedMarks = fired
		return err
	}
	t.firedMarks = fired
	return nil
}

// Skip stops the timer without a completion signal.
func (t *Timer) Skip(ctx context.Context) error {
	if t.state == StateIdle {
		return nil
	}
	t.cancelNotification(ctx)
	t.toIdle()
	t.countEvent("skipped")
	return t.clear(ctx)
}

// Complete stops the timer and fires the completion signal.
func (t *Timer) Complete(ctx context.Context) error {
	t.cancelNotification(ctx)
	t.toIdle()
	t.sink.RestCompleted(t.sessionID)
	return t.clear(ctx)
}

// Tick recomputes the remaining time from the wall clock, emits countdown
// milestones and auto-completes once the end time is reached.
func (t *Timer) Tick(ctx context.Context) (Snapshot, error) {
	if t.state != StateRunning {
		return t.Snapshot(), nil
	}

	remaining := t.remainingAt(t.now())
	if remaining <= 0 {
		err := t.Complete(ctx)
		snapshot := t.Snapshot()
		snapshot.CompletedThisRun = true
		return snapshot, err
	}

	if mark, ok := t.dueMilestone(int(math.Ceil(remaining.Seconds()))); ok {
		t.sink.RestMilestone(t.sessionID, mark)
	}

	return t.Snapshot(), nil
}

// dueMilestone returns the smallest unfired mark at or above secondsLeft and
// marks every mark at or above secondsLeft as fired. Marks skipped between
// two sparse ticks collapse into the one closest to the end.
func (t *Timer) dueMilestone(secondsLeft int) (int, bool) {
	due, found := 0, false
	for _, mark := range milestones {
		if mark < secondsLeft || t.firedMarks[mark] {
			continue
		}
		t.firedMarks[mark] = true
		if !found || mark < due {
			due, found = mark, true
		}
	}
	return due, found
}

func (t *Timer) Snapshot() Snapshot {
	snapshot := Snapshot{State: t.state}
	switch t.state {
	case StateRunning:
		remaining := t.remainingAt(t.now())
		end := t.endTime()
		snapshot.Remaining = remaining.Seconds()
		snapshot.Total = t.duration.Seconds()
		snapshot.EndTime = &end
		snapshot.Display = units.FormatCountdown(remaining)
	case StatePaused:
		snapshot.Remaining = t.remaining.Seconds()
		snapshot.Total = t.duration.Seconds()
		snapshot.Display = units.FormatCountdown(t.remaining)
	default:
		snapshot.Display = units.FormatCountdown(0)
	}
	return snapshot
}

// Restore re-anchors the timer from the persisted record after the app was
// backgrounded or restarted.
func (t *Timer) Restore(ctx context.Context) error {
	value, found, err := t.store.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("read rest timer record: %w", err)
	}
	if !found {
		if t.state == StateRunning {
			// completed elsewhere while we were away
			t.notificationID = ""
			t.toIdle()
		}
		return nil
	}

	var rec record
	if err := json.Unmarshal(value, &rec); err != nil {
		log.Debugf("discarding unreadable rest timer record: %s", err)
		return t.removeRecord(ctx)
	}
	if rec.SessionID != t.sessionID {
		log.Debugf("discarding rest timer record of session %s", rec.SessionID)
		return t.removeRecord(ctx)
	}
	if !rec.Active || rec.DurationSeconds <= 0 {
		return t.removeRecord(ctx)
	}

	// the record's notification is the one that may still be pending
	if t.notificationID != "" && t.notificationID != rec.NotificationID {
		t.cancelNotification(ctx)
	}
	t.notificationID = rec.NotificationID

	if !rec.endTime().After(t.now()) {
		return t.Complete(ctx)
	}

	sameRun := t.state == StateRunning && t.startTime.Equal(rec.StartTime)
	t.state = StateRunning
	t.startTime = rec.StartTime
	t.duration = secondsToDuration(rec.DurationSeconds)
	if !sameRun {
		t.firedMarks = make(map[int]bool)
	}

	// replace the stale notification, cancel first
	t.cancelNotification(ctx)
	var errs []error
	id, err := t.scheduler.Schedule(ctx, t.endTime(), notify.Payload{
		Type:      notify.RestTimerComplete,
		SessionID: t.sessionID,
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("reschedule rest notification: %w", err))
	} else {
		t.notificationID = id
	}
	if err := t.persist(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// HandleNotification completes the timer when its scheduled completion
// notification is delivered. It reports whether the timer was completed.
func (t *Timer) HandleNotification(ctx context.Context, payload notify.Payload) (bool, error) {
	if payload.Type != notify.RestTimerComplete || payload.SessionID != t.sessionID {
		return false, nil
	}
	if t.state != StateRunning || t.now().Before(t.endTime()) {
		return false, nil
	}
	return true, t.Complete(ctx)
}

func (t *Timer) remainingAt(now time.Time) time.Duration {
	return max(0, t.endTime().Sub(now))
}

func (t *Timer) toIdle() {
	t.state = StateIdle
	t.remaining = 0
	t.startTime = time.Time{}
	t.duration = 0
}

func (t *Timer) cancelNotification(ctx context.Context) {
	if t.notificationID == "" {
		return
	}
	id := t.notificationID
	t.notificationID = ""
	// a stale notification that still fires is ignored by HandleNotification
	if err := t.scheduler.Cancel(ctx, id); err != nil {
		log.Errorf("cancel rest notification %s: %s", id, err)
	}
}

func (t *Timer) persist(ctx context.Context) error {
	rec := record{
		Active:          true,
		StartTime:       t.startTime,
		DurationSeconds: t.duration.Seconds(),
		SessionID:       t.sessionID,
		NotificationID:  t.notificationID,
	}
	recBytes, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal rest timer record: %w", err)
	}
	if err := t.store.Set(ctx, StorageKey, recBytes); err != nil {
		return fmt.Errorf("persist rest timer record: %w", err)
	}
	return nil
}

// clear drops the record only when it belongs to this session.
func (t *Timer) clear(ctx context.Context) error {
	value, found, err := t.store.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("read rest timer record: %w", err)
	}
	if !found {
		return nil
	}
	var rec record
	if err := json.Unmarshal(value, &rec); err == nil && rec.SessionID != t.sessionID {
		return nil
	}
	return t.removeRecord(ctx)
}

func (t *Timer) removeRecord(ctx context.Context) error {
	if err := t.store.Remove(ctx, StorageKey); err != nil {
		return fmt.Errorf("remove rest timer record: %w", err)
	}
	return nil
}

func (t *Timer) countEvent(event string) {
	if t.metrics == nil {
		return
	}
	t.metrics.CounterRestTimers.WithLabelValues(event).Inc()
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
