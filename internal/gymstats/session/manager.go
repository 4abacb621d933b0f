package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/2beens/gymsession/internal/gymstats/workout"
	"github.com/2beens/gymsession/internal/notify"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var _ notify.Handler = (*Manager)(nil)

// Manager keeps the attached session controllers and routes fired
// notifications to them.
type Manager struct {
	deps Deps

	mutex       sync.Mutex
	controllers map[uuid.UUID]*Controller
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:        deps.withDefaults(),
		controllers: make(map[uuid.UUID]*Controller),
	}
}

// Attach returns the controller of the session, loading it on first use.
// Session setup runs only when the controller is built; a cached controller
// is returned as is so rounds and sets removed since are not refilled.
func (m *Manager) Attach(ctx context.Context, sessionID uuid.UUID) (*Controller, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if c, ok := m.controllers[sessionID]; ok {
		if !c.IsFinished() {
			return c, nil
		}
		m.remove(ctx, sessionID)
	}

	c, err := Attach(ctx, m.deps, sessionID)
	if err != nil {
		return nil, err
	}
	m.controllers[sessionID] = c
	m.updateGauge()
	return c, nil
}

func (m *Manager) Get(sessionID uuid.UUID) (*Controller, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	c, ok := m.controllers[sessionID]
	return c, ok
}

// Detach flushes and forgets the controller of the session.
func (m *Manager) Detach(ctx context.Context, sessionID uuid.UUID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.remove(ctx, sessionID)
}

func (m *Manager) CloseAll(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var errs []error
	for id := range m.controllers {
		if err := m.remove(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.controllers)
}

func (m *Manager) remove(ctx context.Context, sessionID uuid.UUID) error {
	c, ok := m.controllers[sessionID]
	if !ok {
		return nil
	}
	delete(m.controllers, sessionID)
	m.updateGauge()
	if err := c.Close(ctx); err != nil {
		return fmt.Errorf("close session %s: %w", sessionID, err)
	}
	return nil
}

func (m *Manager) updateGauge() {
	if m.deps.Metrics != nil {
		m.deps.Metrics.GaugeActiveSessions.Set(float64(len(m.controllers)))
	}
}

// Deliver handles a fired rest timer notification. Sessions that are not
// attached yet are attached first; notifications of sessions that are no
// longer in progress are dropped.
func (m *Manager) Deliver(ctx context.Context, n notify.Notification) error {
	if n.Payload.Type != notify.RestTimerComplete {
		m.countDelivery("unknown")
		return fmt.Errorf("%w: %s", notify.ErrUnknownNotification, n.Payload.Type)
	}

	c, err := m.Attach(ctx, n.Payload.SessionID)
	if err != nil {
		if errors.Is(err, ErrNotInProgress) || errors.Is(err, workout.ErrNotFound) {
			log.Debugf("dropping notification %s: %s", n.ID, err)
			m.countDelivery("stale")
			return nil
		}
		m.countDelivery("error")
		return err
	}

	completed, err := c.HandleNotification(ctx, n.Payload)
	if err != nil {
		m.countDelivery("error")
		return fmt.Errorf("handle notification %s: %w", n.ID, err)
	}
	if completed {
		m.countDelivery("completed")
	} else {
		m.countDelivery("ignored")
	}
	return nil
}

func (m *Manager) countDelivery(result string) {
	if m.deps.Metrics != nil {
		m.deps.Metrics.CounterNotificationsDelivery.WithLabelValues(result).Inc()
	}
}
