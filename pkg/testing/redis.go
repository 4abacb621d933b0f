package testing

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// RedisIntegrationEnv enables tests against a live redis when set to "1".
const RedisIntegrationEnv = "GYMSESSION_REDIS_TESTS"

// GetRedisClientAndCtx connects to the redis at REDIS_HOST (default
// localhost), skipping the test unless RedisIntegrationEnv is set. The
// database is flushed before and after the test.
func GetRedisClientAndCtx(t *testing.T) (context.Context, *redis.Client) {
	t.Helper()
	if os.Getenv(RedisIntegrationEnv) != "1" {
		t.Skipf("redis integration tests disabled, set %s=1 to run them", RedisIntegrationEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}
	t.Logf("using redis host: [%s]", redisHost)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(redisHost, "6379"),
		Password: os.Getenv("REDIS_PASS"),
		DB:       15, // keep clear of the service db
	})
	t.Cleanup(func() {
		_ = rdb.FlushDB(context.Background()).Err()
		_ = rdb.Close()
	})

	pingRes, err := rdb.Ping(ctx).Result()
	require.NoError(t, err)
	t.Logf("redis ping res: %s", pingRes)
	require.NoError(t, rdb.FlushDB(ctx).Err())

	return ctx, rdb
}
