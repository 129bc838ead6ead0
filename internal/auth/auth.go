// Package auth validates inbound bearer credentials before any business
// logic runs. Tokens are RS256 JWTs issued by an external identity provider
// (a Cognito user pool in the reference deployment); the verifier checks
// signature, expiry, issuer, and client binding against the provider's
// published JWKS document.
package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ignite/launchlist/internal/config"
	"github.com/ignite/launchlist/internal/pkg/logger"
)

var (
	// ErrMissingCredential means the request carried no bearer token.
	ErrMissingCredential = errors.New("missing bearer credential")
	// ErrInvalidToken covers bad signature, malformed token, and expiry.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongAudience means a well-signed token from the wrong issuer or
	// for the wrong client.
	ErrWrongAudience = errors.New("token not issued for this service")
)

// Claims are the token claims the gate inspects. Cognito access tokens
// carry the app client in a client_id claim rather than aud, so both are
// accepted.
type Claims struct {
	ClientID string `json:"client_id"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens against an identity provider.
type Verifier struct {
	issuer   string
	clientID string
	keys     *jwksCache
}

// NewVerifier creates a token verifier for the configured issuer.
func NewVerifier(cfg config.AuthConfig) *Verifier {
	return &Verifier{
		issuer:   cfg.Issuer,
		clientID: cfg.ClientID,
		keys:     newJWKSCache(cfg.JWKSURL),
	}
}

// ValidateToken parses and validates a raw bearer token. It returns the
// claims on success, ErrInvalidToken for signature/expiry/parse failures,
// and ErrWrongAudience for issuer or client mismatches.
func (v *Verifier) ValidateToken(r *http.Request, raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, v.keys.keyfunc(r.Context()),
		jwt.WithValidMethods([]string{"RS256"}),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	// Issuer and client binding are checked separately from signature so
	// the caller can distinguish 401 (bad credential) from 403 (credential
	// for the wrong party).
	if v.issuer != "" {
		iss, _ := claims.GetIssuer()
		if iss != v.issuer {
			return nil, ErrWrongAudience
		}
	}
	if v.clientID != "" && !v.matchesClient(claims) {
		return nil, ErrWrongAudience
	}

	return claims, nil
}

func (v *Verifier) matchesClient(claims *Claims) bool {
	if claims.ClientID == v.clientID {
		return true
	}
	for _, aud := range claims.Audience {
		if aud == v.clientID {
			return true
		}
	}
	return false
}

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", ErrMissingCredential
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrMissingCredential
	}
	return parts[1], nil
}

// RequireAuth is middleware that rejects unauthenticated requests before
// they reach any handler. Rejection happens before any store or dispatch
// side effect: 401 for missing/invalid/expired credentials, 403 for a
// valid credential bound to the wrong issuer or client.
func (v *Verifier) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := BearerToken(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "missing credential")
			return
		}

		if _, err := v.ValidateToken(r, raw); err != nil {
			if errors.Is(err, ErrWrongAudience) {
				writeAuthError(w, http.StatusForbidden, "forbidden")
				return
			}
			logger.Debug("token rejected", "err", err.Error())
			writeAuthError(w, http.StatusUnauthorized, "invalid credential")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
