package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/launchlist/internal/config"
	"github.com/ignite/launchlist/internal/store"
)

func setupRateLimited(t *testing.T, limit int, window time.Duration) (*testEnv, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{}
	cfg.Subscribe.RequireEmail = true
	cfg.Mailer.TimeoutSeconds = 5

	env := &testEnv{
		store:  store.NewMemoryStore(),
		mailer: &fakeMailer{},
	}
	h := NewHandlers(env.store, env.mailer, cfg)
	limiter := NewRateLimiter(client, limit, window)
	env.router = SetupRoutes(h, nil, limiter, []string{"*"})
	return env, mr
}

func TestRateLimiterRejectsOverBudget(t *testing.T) {
	env, _ := setupRateLimited(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		rec := postSubscribe(t, env.router, `{"email": "new@example.com"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := postSubscribe(t, env.router, `{"email": "other@example.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", decodeBody(t, rec)["error"])

	// The rejected request never reached the store
	assert.Equal(t, 1, env.store.Count())
	_, ok := env.store.Get("other@example.com")
	assert.False(t, ok)
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	env, mr := setupRateLimited(t, 1, time.Minute)

	rec := postSubscribe(t, env.router, `{"email": "new@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postSubscribe(t, env.router, `{"email": "new@example.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// After the window passes the budget resets
	mr.FastForward(61 * time.Second)

	rec = postSubscribe(t, env.router, `{"email": "new@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterFailsOpen(t *testing.T) {
	env, mr := setupRateLimited(t, 1, time.Minute)

	// Redis going away must not take the intake path down
	mr.Close()

	rec := postSubscribe(t, env.router, `{"email": "new@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.store.Count())
}
