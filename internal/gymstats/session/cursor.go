package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2beens/gymsession/internal/kv"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Cursor points at the current exercise: a group index and the exercise
// index within that group.
type Cursor struct {
	Group    int `json:"group"`
	Exercise int `json:"exercise"`
}

func navKey(sessionID uuid.UUID) string {
	return kv.KeyPrefix + "nav||" + sessionID.String()
}

func (c *Controller) persistCursor(ctx context.Context) error {
	cursorBytes, err := json.Marshal(c.cursor)
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}
	if err := c.kv.Set(ctx, navKey(c.session.ID), cursorBytes); err != nil {
		return fmt.Errorf("persist cursor: %w", err)
	}
	return nil
}

func (c *Controller) restoreCursor(ctx context.Context) error {
	value, found, err := c.kv.Get(ctx, navKey(c.session.ID))
	if err != nil {
		return fmt.Errorf("read cursor: %w", err)
	}
	if found {
		var cursor Cursor
		if err := json.Unmarshal(value, &cursor); err != nil {
			log.Debugf("discarding unreadable cursor of session %s: %s", c.session.ID, err)
		} else {
			c.cursor = cursor
		}
	}
	c.clampCursor()
	return nil
}

// clampCursor moves the cursor back into the valid range after the group
// layout changed or a stale position was restored.
func (c *Controller) clampCursor() {
	if len(c.groups) == 0 {
		c.cursor = Cursor{}
		return
	}
	c.cursor.Group = min(max(c.cursor.Group, 0), len(c.groups)-1)
	c.cursor.Exercise = min(max(c.cursor.Exercise, 0), len(c.groups[c.cursor.Group].Exercises)-1)
}
