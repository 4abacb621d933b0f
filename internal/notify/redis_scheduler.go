package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/2beens/gymsession/internal/kv"
	"github.com/2beens/gymsession/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	scheduleKey = kv.KeyPrefix + "notify||schedule"
	payloadsKey = kv.KeyPrefix + "notify||payloads"

	defaultPollInterval = time.Second
	pollBatchSize       = 50
)

// RedisScheduler keeps pending notifications in a sorted set scored by fire
// time (unix millis), with payloads in a hash. A poll loop claims due entries
// with ZREM, so each notification is delivered by exactly one poller.
type RedisScheduler struct {
	redisClient  *redis.Client
	handler      Handler
	pollInterval time.Duration
	now          func() time.Time
	newID        func() string

	mutex   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewRedisScheduler(redisClient *redis.Client, handler Handler, pollInterval time.Duration) *RedisScheduler {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &RedisScheduler{
		redisClient:  redisClient,
		handler:      handler,
		pollInterval: pollInterval,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

func (s *RedisScheduler) Schedule(ctx context.Context, fireAt time.Time, payload Payload) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notify.redis.schedule")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	n := Notification{
		ID:      s.newID(),
		FireAt:  fireAt,
		Payload: payload,
	}
	span.SetAttributes(
		attribute.String("id", n.ID),
		attribute.String("type", string(payload.Type)),
		attribute.String("fire-at", fireAt.String()),
	)

	nBytes, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("marshal notification: %w", err)
	}

	// payload goes in first, a poller never sees an id it cannot resolve
	if err := s.redisClient.HSet(ctx, payloadsKey, n.ID, nBytes).Err(); err != nil {
		return "", fmt.Errorf("store notification payload: %w", err)
	}
	if err := s.redisClient.ZAdd(ctx, scheduleKey, &redis.Z{
		Score:  float64(fireAt.UnixMilli()),
		Member: n.ID,
	}).Err(); err != nil {
		return "", fmt.Errorf("schedule notification: %w", err)
	}

	return n.ID, nil
}

func (s *RedisScheduler) Cancel(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notify.redis.cancel")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("id", id))

	if err := s.redisClient.ZRem(ctx, scheduleKey, id).Err(); err != nil {
		return fmt.Errorf("cancel notification %s: %w", id, err)
	}
	if err := s.redisClient.HDel(ctx, payloadsKey, id).Err(); err != nil {
		return fmt.Errorf("delete notification payload %s: %w", id, err)
	}
	return nil
}

// Pending returns the number of notifications not fired yet.
func (s *RedisScheduler) Pending(ctx context.Context) (int64, error) {
	return s.redisClient.ZCard(ctx, scheduleKey).Result()
}

// PollDue claims and delivers every notification whose fire time has passed.
// It returns the number of delivered notifications.
func (s *RedisScheduler) PollDue(ctx context.Context) (delivered int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notify.redis.pollDue")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	ids, err := s.redisClient.ZRangeByScore(ctx, scheduleKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(s.now().UnixMilli(), 10),
		Count: pollBatchSize,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("list due notifications: %w", err)
	}

	for _, id := range ids {
		claimed, err := s.redisClient.ZRem(ctx, scheduleKey, id).Result()
		if err != nil {
			return delivered, fmt.Errorf("claim notification %s: %w", id, err)
		}
		if claimed == 0 {
			// cancelled or claimed by another poller in the meantime
			continue
		}

		nBytes, err := s.redisClient.HGet(ctx, payloadsKey, id).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				log.Warnf("notification %s claimed without payload", id)
				continue
			}
			return delivered, fmt.Errorf("get notification payload %s: %w", id, err)
		}
		if err := s.redisClient.HDel(ctx, payloadsKey, id).Err(); err != nil {
			log.Errorf("delete notification payload %s: %s", id, err)
		}

		var n Notification
		if err := json.Unmarshal(nBytes, &n); err != nil {
			log.Errorf("unmarshal notification %s: %s", id, err)
			continue
		}

		if err := s.handler.Deliver(ctx, n); err != nil {
			log.Errorf("deliver notification %s [%s]: %s", id, n.Payload.Type, err)
			continue
		}
		delivered++
	}

	span.SetAttributes(attribute.Int("delivered", delivered))
	return delivered, nil
}

// Start runs the poll loop in the background until Stop or ctx is done.
func (s *RedisScheduler) Start(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.running {
		log.Debugln("notification scheduler already running")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.done)
	log.Infof("notification scheduler started, poll interval: %s", s.pollInterval)
}

func (s *RedisScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PollDue(ctx); err != nil && ctx.Err() == nil {
				log.Errorf("poll due notifications: %s", err)
			}
		}
	}
}

func (s *RedisScheduler) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.running = false
	s.mutex.Unlock()

	<-done
	log.Infoln("notification scheduler stopped")
}

func (s *RedisScheduler) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}
