package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownNotification = errors.New("unknown notification")

type PayloadType string

const (
	RestTimerComplete PayloadType = "rest_timer_complete"
)

// Payload is what the client receives when a scheduled notification fires.
type Payload struct {
	Type      PayloadType `json:"type"`
	SessionID uuid.UUID   `json:"sessionId"`
}

type Notification struct {
	ID      string    `json:"id"`
	FireAt  time.Time `json:"fireAt"`
	Payload Payload   `json:"payload"`
}

var (
	_ Scheduler = (*RedisScheduler)(nil)
	_ Scheduler = (*TestScheduler)(nil)
)

// Scheduler schedules one-shot notifications at a wall-clock time.
// Cancelling an unknown or already fired notification is not an error.
type Scheduler interface {
	Schedule(ctx context.Context, fireAt time.Time, payload Payload) (string, error)
	Cancel(ctx context.Context, id string) error
}

// Handler receives notifications once they are due.
type Handler interface {
	Deliver(ctx context.Context, n Notification) error
}

type HandlerFunc func(ctx context.Context, n Notification) error

func (f HandlerFunc) Deliver(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Chain delivers to every handler in order and joins their errors.
type Chain []Handler

func (c Chain) Deliver(ctx context.Context, n Notification) error {
	var errs []error
	for _, h := range c {
		if h == nil {
			continue
		}
		if err := h.Deliver(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
