package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/2beens/gymsession/internal/gymstats/feedback"
	"github.com/2beens/gymsession/internal/gymstats/resttimer"
	"github.com/2beens/gymsession/internal/gymstats/session"
	"github.com/2beens/gymsession/internal/notify"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, f *fixture) *session.Manager {
	t.Helper()
	m := session.NewManager(f.deps())
	t.Cleanup(func() {
		assert.NoError(t, m.CloseAll(context.Background()))
	})
	return m
}

func TestManager_AttachReusesController(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scenarioA...)
	sessionID := f.startSession(t)
	m := newTestManager(t, f)

	first, err := m.Attach(ctx, sessionID)
	require.NoError(t, err)
	second, err := m.Attach(ctx, sessionID)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GaugeActiveSessions))

	got, ok := m.Get(sessionID)
	require.True(t, ok)
	assert.Same(t, first, got)

	require.NoError(t, m.Detach(ctx, sessionID))
	_, ok = m.Get(sessionID)
	assert.False(t, ok)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.GaugeActiveSessions))
}

func TestManager_AttachAfterFinish(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scenarioA...)
	sessionID := f.startSession(t)
	m := newTestManager(t, f)

	c, err := m.Attach(ctx, sessionID)
	require.NoError(t, err)
	require.NoError(t, c.Finish(ctx))

	_, err = m.Attach(ctx, sessionID)
	assert.ErrorIs(t, err, session.ErrNotInProgress)
	assert.Equal(t, 0, m.Len())
}

func TestManager_DeliverCompletesRest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scenarioA...)
	sessionID := f.startSession(t)
	m := newTestManager(t, f)

	c, err := m.Attach(ctx, sessionID)
	require.NoError(t, err)
	require.NoError(t, c.StartRest(ctx, 90*time.Second))

	delivered, err := f.scheduler.FireDue(ctx, f.clock.Now(), m)
	require.NoError(t, err)
	assert.Zero(t, delivered)

	f.clock.Advance(91 * time.Second)
	delivered, err = f.scheduler.FireDue(ctx, f.clock.Now(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	assert.Equal(t, resttimer.StateIdle, c.RestSnapshot().State)
	assert.Equal(t, 1, f.recorder.Count(feedback.KindRestCompleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CounterNotificationsDelivery.WithLabelValues("completed")))
}

func TestManager_DeliverAttachesAfterRestart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scenarioA...)
	sessionID := f.startSession(t)

	before := newTestManager(t, f)
	c, err := before.Attach(ctx, sessionID)
	require.NoError(t, err)
	require.NoError(t, c.StartRest(ctx, 60*time.Second))
	require.NoError(t, before.CloseAll(ctx))

	f.clock.Advance(2 * time.Minute)
	after := newTestManager(t, f)
	err = after.Deliver(ctx, notify.Notification{
		ID:      "late",
		Payload: notify.Payload{Type: notify.RestTimerComplete, SessionID: sessionID},
	})
	require.NoError(t, err)

	restarted, ok := after.Get(sessionID)
	require.True(t, ok)
	assert.Equal(t, resttimer.StateIdle, restarted.RestSnapshot().State)
	assert.Equal(t, 1, f.recorder.Count(feedback.KindRestCompleted))
	assert.Empty(t, f.scheduler.Active())
}

func TestManager_DeliverStaleAndUnknown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scenarioA...)
	sessionID := f.startSession(t)
	m := newTestManager(t, f)

	c, err := m.Attach(ctx, sessionID)
	require.NoError(t, err)
	require.NoError(t, c.Finish(ctx))

	payload := notify.Payload{Type: notify.RestTimerComplete, SessionID: sessionID}
	require.NoError(t, m.Deliver(ctx, notify.Notification{ID: "finished", Payload: payload}))

	payload.SessionID = uuid.New()
	require.NoError(t, m.Deliver(ctx, notify.Notification{ID: "missing", Payload: payload}))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.CounterNotificationsDelivery.WithLabelValues("stale")))

	err = m.Deliver(ctx, notify.Notification{ID: "other", Payload: notify.Payload{Type: "workout_reminder"}})
	assert.ErrorIs(t, err, notify.ErrUnknownNotification)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CounterNotificationsDelivery.WithLabelValues("unknown")))
}

func TestManager_DeliverBeforeEndIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, scenarioA...)
	sessionID := f.startSession(t)
	m := newTestManager(t, f)

	c, err := m.Attach(ctx, sessionID)
	require.NoError(t, err)
	require.NoError(t, c.StartRest(ctx, 90*time.Second))

	id := f.scheduler.Active()[0].ID
	require.NoError(t, f.scheduler.Fire(ctx, id, m))
	assert.Equal(t, resttimer.StateRunning, c.RestSnapshot().State)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CounterNotificationsDelivery.WithLabelValues("ignored")))
}
