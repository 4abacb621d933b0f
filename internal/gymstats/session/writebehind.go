package session

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/2beens/gymsession/internal/gymstats/workout"

	"github.com/google/uuid"
)

const DefaultDebounceDelay = time.Second

// writeBehind coalesces set edits into a single commit once input has been
// quiet for the debounce delay. Only the latest version of each set is kept.
type writeBehind struct {
	store   workout.Store
	delay   time.Duration
	onError func(error)

	mutex   sync.Mutex
	pending map[uuid.UUID]workout.ExerciseSet
	timer   *time.Timer
	closed  bool

	// serializes commits of async and explicit flushes
	commitMutex sync.Mutex
}

func newWriteBehind(store workout.Store, delay time.Duration, onError func(error)) *writeBehind {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &writeBehind{
		store:   store,
		delay:   delay,
		onError: onError,
		pending: make(map[uuid.UUID]workout.ExerciseSet),
	}
}

func (w *writeBehind) Put(set workout.ExerciseSet) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.pending[set.ID] = set
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, func() {
		if err := w.Flush(context.Background()); err != nil && w.onError != nil {
			w.onError(err)
		}
	})
}

// Drop forgets pending writes of sets that are about to be deleted.
func (w *writeBehind) Drop(ids ...uuid.UUID) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	for _, id := range ids {
		delete(w.pending, id)
	}
}

func (w *writeBehind) Pending() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return len(w.pending)
}

// Flush commits all pending writes now. On failure the writes are kept,
// unless a newer version of the same set arrived in the meantime.
func (w *writeBehind) Flush(ctx context.Context) error {
	w.commitMutex.Lock()
	defer w.commitMutex.Unlock()

	w.mutex.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if len(w.pending) == 0 {
		w.mutex.Unlock()
		return nil
	}
	batch := w.pending
	w.pending = make(map[uuid.UUID]workout.ExerciseSet)
	w.mutex.Unlock()

	cs := &workout.ChangeSet{Sets: make([]workout.ExerciseSet, 0, len(batch))}
	for _, s := range batch {
		cs.Sets = append(cs.Sets, s)
	}

	if err := w.store.Commit(ctx, cs); err != nil {
		w.mutex.Lock()
		for id, s := range batch {
			if _, newer := w.pending[id]; !newer {
				w.pending[id] = s
			}
		}
		w.mutex.Unlock()
		return err
	}
	return nil
}

// Close stops the debounce timer and flushes what is left. Later Puts are
// buffered but only written by an explicit Flush.
func (w *writeBehind) Close(ctx context.Context) error {
	w.mutex.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mutex.Unlock()
	return w.Flush(ctx)
}

func (w *writeBehind) snapshot() map[uuid.UUID]workout.ExerciseSet {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return maps.Clone(w.pending)
}
