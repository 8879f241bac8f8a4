package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/stockflow/core"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server; set REDIS_URL to enable.
func TestRedisStore_e2e(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	s := NewRedisStore(client, "stockflow-test:"+uuid.New().String()+":")

	require.NoError(t, s.Set(ctx, "stockflow_currentUser", "alpha", time.Minute))

	val, err := s.Get(ctx, "stockflow_currentUser")
	require.NoError(t, err)
	assert.Equal(t, "alpha", val)

	require.NoError(t, s.Delete(ctx, "stockflow_currentUser", "stockflow_access_token"))

	_, err = s.Get(ctx, "stockflow_currentUser")
	assert.ErrorIs(t, err, core.ErrMarkerNotFound)
}
