package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/gymsession/internal/gymstats/resttimer"
	"github.com/2beens/gymsession/internal/gymstats/units"
	"github.com/2beens/gymsession/internal/gymstats/workout"
	"github.com/2beens/gymsession/internal/notify"
	"github.com/2beens/gymsession/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

type TickResult struct {
	Rest           resttimer.Snapshot `json:"rest"`
	Elapsed        time.Duration      `json:"elapsed"`
	ElapsedDisplay string             `json:"elapsedDisplay"`
}

// StartRest starts a rest of d, or of the default rest when d is not positive.
func (c *Controller) StartRest(ctx context.Context, d time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.checkActive(); err != nil {
		return err
	}
	if d <= 0 {
		d = c.defaultRest
	}
	return c.timer.Start(ctx, d)
}

func (c *Controller) ResetRest(ctx context.Context, d time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.checkActive(); err != nil {
		return err
	}
	if d <= 0 {
		d = c.defaultRest
	}
	return c.timer.Reset(ctx, d)
}

func (c *Controller) PauseRest(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.checkActive(); err != nil {
		return err
	}
	return c.timer.Pause(ctx)
}

func (c *Controller) ResumeRest(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.checkActive(); err != nil {
		return err
	}
	return c.timer.Resume(ctx)
}

func (c *Controller) SkipRest(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.checkActive(); err != nil {
		return err
	}
	return c.timer.Skip(ctx)
}

// Tick advances the rest timer from the wall clock and reports the elapsed
// workout time.
func (c *Controller) Tick(ctx context.Context) (TickResult, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	rest, err := c.timer.Tick(ctx)
	elapsed := c.elapsed()
	return TickResult{
		Rest:           rest,
		Elapsed:        elapsed,
		ElapsedDisplay: units.FormatElapsed(elapsed),
	}, err
}

func (c *Controller) elapsed() time.Duration {
	if c.session.StartTime == nil {
		return 0
	}
	end := c.now()
	if c.session.EndTime != nil {
		end = *c.session.EndTime
	}
	return max(0, end.Sub(*c.session.StartTime))
}

// EnterBackground is called when the client is about to be suspended:
// pending set input is committed and the cursor persisted.
func (c *Controller) EnterBackground(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.background")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	var errs []error
	if err := c.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.persistCursor(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// EnterForeground re-anchors the rest timer from its persisted record. A rest
// that ended while the client was away completes now.
func (c *Controller) EnterForeground(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.foreground")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.finished {
		return nil
	}
	if err := c.timer.Restore(ctx); err != nil {
		return fmt.Errorf("restore rest timer: %w", err)
	}
	return nil
}

// HandleNotification handles a fired scheduler notification addressed to
// this session.
func (c *Controller) HandleNotification(ctx context.Context, payload notify.Payload) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.finished {
		return false, nil
	}
	return c.timer.HandleNotification(ctx, payload)
}

func (c *Controller) RestSnapshot() resttimer.Snapshot {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.timer.Snapshot()
}

// Finish ends the workout. Pending set input is committed first, then the
// session end time. On failure the session stays in progress and is closed by
// the orphan reconciliation at a later startup.
func (c *Controller) Finish(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.finish")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.checkActive(); err != nil {
		return err
	}
	if err := c.Flush(ctx); err != nil {
		log.Errorf("session %s: finish failed: %s", c.session.ID, err)
		return err
	}

	finished := c.session
	end := c.now()
	finished.EndTime = &end
	if err := c.store.Commit(ctx, &workout.ChangeSet{Sessions: []workout.Session{finished}}); err != nil {
		log.Errorf("session %s: finish failed: %s", c.session.ID, err)
		return fmt.Errorf("commit session end: %w", err)
	}
	c.session = finished
	c.finished = true

	if err := c.timer.Skip(ctx); err != nil {
		log.Errorf("session %s: stop rest timer: %s", c.session.ID, err)
	}
	if err := c.kv.Remove(ctx, navKey(c.session.ID)); err != nil {
		log.Errorf("session %s: remove cursor: %s", c.session.ID, err)
	}
	if c.metrics != nil {
		c.metrics.CounterSessionsFinished.Inc()
		c.metrics.HistogramSessionDuration.Observe(c.elapsed().Seconds())
	}

	log.Infof("session %s finished after %s", c.session.ID, units.FormatElapsed(c.elapsed()))
	return nil
}
