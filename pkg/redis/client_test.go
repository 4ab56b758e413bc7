package redis_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/redis"
)

func getTestClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("REDIS_HOST not set, skipping integration test")
	}
	port, err := strconv.Atoi(os.Getenv("REDIS_PORT"))
	if err != nil {
		port = 6379
	}

	client, err := redis.NewClient(context.Background(), redis.Config{Host: host, Port: port}, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_GetSet(t *testing.T) {
	client := getTestClient(t)
	ctx := context.Background()
	key := "clover:test:" + uuid.NewString()
	t.Cleanup(func() { _ = client.Del(ctx, key) })

	_, found, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, client.Set(ctx, key, "value", time.Minute))

	value, found, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", value)
}
