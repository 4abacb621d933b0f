package notify

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// TestScheduler is an in-memory Scheduler that never fires on its own.
// It records every call so ordering of cancel and schedule can be asserted.
type TestScheduler struct {
	mutex     sync.Mutex
	pending   map[string]Notification
	Scheduled []Notification
	Cancelled []string
	// Calls holds "schedule:<id>" and "cancel:<id>" entries in call order.
	Calls []string

	nextID int
	err    error
}

func NewTestScheduler() *TestScheduler {
	return &TestScheduler{
		pending: make(map[string]Notification),
	}
}

func (s *TestScheduler) Schedule(_ context.Context, fireAt time.Time, payload Payload) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.err != nil {
		return "", s.err
	}

	s.nextID++
	n := Notification{
		ID:      fmt.Sprintf("test-notification-%d", s.nextID),
		FireAt:  fireAt,
		Payload: payload,
	}
	s.pending[n.ID] = n
	s.Scheduled = append(s.Scheduled, n)
	s.Calls = append(s.Calls, "schedule:"+n.ID)
	return n.ID, nil
}

func (s *TestScheduler) Cancel(_ context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.err != nil {
		return s.err
	}

	delete(s.pending, id)
	s.Cancelled = append(s.Cancelled, id)
	s.Calls = append(s.Calls, "cancel:"+id)
	return nil
}

// FailWith makes Schedule and Cancel return err until called with nil.
func (s *TestScheduler) FailWith(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.err = err
}

// Active returns the notifications scheduled and not yet cancelled or fired,
// ordered by fire time.
func (s *TestScheduler) Active() []Notification {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	active := make([]Notification, 0, len(s.pending))
	for _, n := range s.pending {
		active = append(active, n)
	}
	slices.SortFunc(active, func(a, b Notification) int {
		return a.FireAt.Compare(b.FireAt)
	})
	return active
}

// Fire removes the notification and delivers it to h.
func (s *TestScheduler) Fire(ctx context.Context, id string, h Handler) error {
	s.mutex.Lock()
	n, ok := s.pending[id]
	delete(s.pending, id)
	s.mutex.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNotification, id)
	}
	return h.Deliver(ctx, n)
}

// FireDue delivers every pending notification due at now.
func (s *TestScheduler) FireDue(ctx context.Context, now time.Time, h Handler) (int, error) {
	fired := 0
	for _, n := range s.Active() {
		if n.FireAt.After(now) {
			break
		}
		if err := s.Fire(ctx, n.ID, h); err != nil {
			return fired, err
		}
		fired++
	}
	return fired, nil
}

func (s *TestScheduler) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Scheduled = nil
	s.Cancelled = nil
	s.Calls = nil
}
