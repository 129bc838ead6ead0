package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ignite/launchlist/internal/config"
	"github.com/ignite/launchlist/internal/mailer"
	"github.com/ignite/launchlist/internal/pkg/logger"
	"github.com/ignite/launchlist/internal/store"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	store       store.SubscriberStore
	mailer      mailer.Mailer
	policy      config.SubscribeConfig
	mailSubject string
	mailBody    string
	mailTimeout time.Duration
}

// NewHandlers creates a new Handlers instance. mailer may be nil when
// notification dispatch is not configured.
func NewHandlers(s store.SubscriberStore, m mailer.Mailer, cfg *config.Config) *Handlers {
	return &Handlers{
		store:       s,
		mailer:      m,
		policy:      cfg.Subscribe,
		mailSubject: cfg.Mailer.Subject,
		mailBody:    cfg.Mailer.Body,
		mailTimeout: cfg.Mailer.Timeout(),
	}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

// Subscribe handles POST /subscribe: validate the address, persist the
// subscriber record, dispatch the confirmation email, respond. Exactly one
// store write attempt and at most one dispatch attempt happen per request;
// idempotency across requests is entirely the store key's doing.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" && h.policy.RequireEmail {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.store.PutSubscriber(r.Context(), email); err != nil {
		logger.Error("store write failed", "subscriber", email, "err", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to store subscription")
		return
	}

	message := "Subscribed!"
	if h.notificationsEnabled() {
		message = "Subscribed and email sent!"
		// Dispatch failure is non-fatal: the record is already durable, so
		// the response stays 200 and the failure is only logged.
		ctx, cancel := context.WithTimeout(r.Context(), h.mailTimeout)
		defer cancel()
		if err := h.mailer.Send(ctx, email, h.mailSubject, h.mailBody); err != nil {
			logger.Warn("confirmation dispatch failed", "subscriber", email, "err", err.Error())
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *Handlers) notificationsEnabled() bool {
	return h.policy.NotificationsEnabled && h.mailer != nil
}

// HealthCheck reports service liveness. Never gated.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
