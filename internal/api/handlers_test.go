package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/launchlist/internal/auth"
	"github.com/ignite/launchlist/internal/config"
	"github.com/ignite/launchlist/internal/store"
)

// fakeMailer records dispatch attempts and can simulate provider failure.
type fakeMailer struct {
	mu    sync.Mutex
	sends []sendCall
	err   error
}

type sendCall struct {
	to, subject, body string
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sendCall{to, subject, body})
	return f.err
}

func (f *fakeMailer) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

type testEnv struct {
	store  *store.MemoryStore
	mailer *fakeMailer
	router http.Handler
}

func setupTest(t *testing.T, mutate func(cfg *config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Subscribe.RequireEmail = true
	cfg.Mailer.Subject = "Welcome to LaunchList!"
	cfg.Mailer.Body = "Thanks for subscribing."
	cfg.Mailer.TimeoutSeconds = 5
	cfg.Server.AllowedOrigins = []string{"*"}
	if mutate != nil {
		mutate(cfg)
	}

	env := &testEnv{
		store:  store.NewMemoryStore(),
		mailer: &fakeMailer{},
	}
	h := NewHandlers(env.store, env.mailer, cfg)
	env.router = SetupRoutes(h, nil, nil, cfg.Server.AllowedOrigins)
	return env
}

func postSubscribe(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/subscribe", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSubscribeNewAddress(t *testing.T) {
	env := setupTest(t, nil)

	rec := postSubscribe(t, env.router, `{"email": "new@example.com"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Subscribed!", decodeBody(t, rec)["message"])

	record, ok := env.store.Get("new@example.com")
	require.True(t, ok)
	assert.Equal(t, "EMAIL", record.PK)
	assert.Equal(t, "new@example.com", record.SK)

	// Notifications are off: no dispatch attempt
	assert.Zero(t, env.mailer.sendCount())
}

func TestSubscribeWithNotifications(t *testing.T) {
	env := setupTest(t, func(cfg *config.Config) {
		cfg.Subscribe.NotificationsEnabled = true
	})

	rec := postSubscribe(t, env.router, `{"email": "new@example.com"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Subscribed and email sent!", decodeBody(t, rec)["message"])

	require.Equal(t, 1, env.mailer.sendCount())
	assert.Equal(t, sendCall{
		to:      "new@example.com",
		subject: "Welcome to LaunchList!",
		body:    "Thanks for subscribing.",
	}, env.mailer.sends[0])
}

func TestSubscribeIdempotent(t *testing.T) {
	env := setupTest(t, nil)

	for i := 0; i < 2; i++ {
		rec := postSubscribe(t, env.router, `{"email": "new@example.com"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	// Both calls succeed, exactly one record remains
	assert.Equal(t, 1, env.store.Count())
}

func TestSubscribeNormalizesAddress(t *testing.T) {
	env := setupTest(t, nil)

	rec := postSubscribe(t, env.router, `{"email": "  New@Example.COM "}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, ok := env.store.Get("new@example.com")
	assert.True(t, ok)
	assert.Equal(t, 1, env.store.Count())
}

func TestSubscribeMissingEmailStrict(t *testing.T) {
	env := setupTest(t, nil)

	rec := postSubscribe(t, env.router, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email is required", decodeBody(t, rec)["error"])
	assert.Zero(t, env.store.Count())
	assert.Zero(t, env.mailer.sendCount())
}

func TestSubscribeEmptyEmailLenient(t *testing.T) {
	env := setupTest(t, func(cfg *config.Config) {
		cfg.Subscribe.RequireEmail = false
	})

	rec := postSubscribe(t, env.router, `{}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	_, ok := env.store.Get("")
	assert.True(t, ok)
}

func TestSubscribeMalformedBody(t *testing.T) {
	env := setupTest(t, nil)

	rec := postSubscribe(t, env.router, `{"email": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", decodeBody(t, rec)["error"])
	assert.Zero(t, env.store.Count())
}

func TestSubscribeStoreFailure(t *testing.T) {
	env := setupTest(t, func(cfg *config.Config) {
		cfg.Subscribe.NotificationsEnabled = true
	})
	env.store.FailWith(errors.New("provisioned throughput exceeded"))

	rec := postSubscribe(t, env.router, `{"email": "new@example.com"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to store subscription", decodeBody(t, rec)["error"])
	// Dispatch only happens after a successful write
	assert.Zero(t, env.mailer.sendCount())
}

func TestSubscribeDispatchFailureNonFatal(t *testing.T) {
	env := setupTest(t, func(cfg *config.Config) {
		cfg.Subscribe.NotificationsEnabled = true
	})
	env.mailer.err = errors.New("554 address blacklisted")

	rec := postSubscribe(t, env.router, `{"email": "new@example.com"}`)

	// The record is durable, so the response is still success
	assert.Equal(t, http.StatusOK, rec.Code)
	_, ok := env.store.Get("new@example.com")
	assert.True(t, ok)
	assert.Equal(t, 1, env.mailer.sendCount())
}

func TestAuthorizationPrecedesStore(t *testing.T) {
	// Gate enforced, request carries no credential: rejected before any
	// store side effect.
	cfg := &config.Config{}
	cfg.Subscribe.RequireEmail = true
	cfg.Mailer.TimeoutSeconds = 5

	memStore := store.NewMemoryStore()
	fm := &fakeMailer{}
	h := NewHandlers(memStore, fm, cfg)

	verifier := auth.NewVerifier(config.AuthConfig{
		Enabled:  true,
		Issuer:   "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_pool",
		ClientID: "launchlist-web",
		JWKSURL:  "http://127.0.0.1:1/jwks.json", // never reached for a missing credential
	})
	router := SetupRoutes(h, verifier, nil, []string{"*"})

	rec := postSubscribe(t, router, `{"email": "new@example.com"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, memStore.Count())
	assert.Zero(t, fm.sendCount())
}

func TestPreflight(t *testing.T) {
	env := setupTest(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/subscribe", nil)
	req.Header.Set("Origin", "https://launchlist.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestHealthCheck(t *testing.T) {
	env := setupTest(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}
