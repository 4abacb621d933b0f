package session

import (
	"context"
	"fmt"

	"github.com/2beens/gymsession/internal/gymstats/grouping"

	log "github.com/sirupsen/logrus"
)

// CurrentGroup returns the group under the cursor. ok is false when the day
// has no exercises.
func (c *Controller) CurrentGroup() (group grouping.Group, cursor Cursor, ok bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.groups) == 0 {
		return grouping.Group{}, Cursor{}, false
	}
	return c.groups[c.cursor.Group], c.cursor, true
}

func (c *Controller) Groups() []grouping.Group {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]grouping.Group(nil), c.groups...)
}

func (c *Controller) CanGoNext() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.canGoNext()
}

func (c *Controller) canGoNext() bool {
	return c.cursor.Group < len(c.groups)-1
}

func (c *Controller) CanGoPrevious() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.canGoPrevious()
}

func (c *Controller) canGoPrevious() bool {
	return len(c.groups) > 0 && c.cursor.Group > 0
}

// IsLastGroup is true when the cursor is on the final group and the workout
// can only be finished from here.
func (c *Controller) IsLastGroup() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return !c.canGoNext()
}

// GoToNext moves to the first exercise of the next group. It reports false
// when already on the last group.
func (c *Controller) GoToNext(ctx context.Context) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.canGoNext() {
		return false, nil
	}
	c.cursor = Cursor{Group: c.cursor.Group + 1}
	return true, c.persistCursor(ctx)
}

// GoToPrevious moves to the first exercise of the previous group.
func (c *Controller) GoToPrevious(ctx context.Context) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.canGoPrevious() {
		return false, nil
	}
	c.cursor = Cursor{Group: c.cursor.Group - 1}
	return true, c.persistCursor(ctx)
}

// Select moves the cursor to an exercise of a group, for example the B side
// of a superset.
func (c *Controller) Select(ctx context.Context, cursor Cursor) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if cursor.Group < 0 || cursor.Group >= len(c.groups) {
		return fmt.Errorf("%w: group %d", ErrInvalidTarget, cursor.Group)
	}
	if cursor.Exercise < 0 || cursor.Exercise >= len(c.groups[cursor.Group].Exercises) {
		return fmt.Errorf("%w: exercise %d of group %d", ErrInvalidTarget, cursor.Exercise, cursor.Group)
	}
	c.cursor = cursor
	return c.persistCursor(ctx)
}

func (c *Controller) Cursor() Cursor {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.cursor
}

// moveCursor is used after structural edits; a failed cursor write is not
// worth failing an already committed edit for.
func (c *Controller) moveCursor(ctx context.Context, cursor Cursor) {
	c.cursor = cursor
	c.clampCursor()
	if err := c.persistCursor(ctx); err != nil {
		log.Errorf("session %s: %s", c.session.ID, err)
	}
}
