// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/taskgraph/internal/config"
	"github.com/tomtom215/taskgraph/internal/logging"
)

type contextKey string

// ClaimsContextKey holds the validated *Claims of an authenticated request.
const ClaimsContextKey contextKey = "claims"

// DenyFunc writes the rejection for an unauthenticated (401) or
// unauthorized (403) request.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, message string)

func plainDeny(w http.ResponseWriter, _ *http.Request, status int, message string) {
	http.Error(w, message, status)
}

// Middleware enforces the configured auth mode on wrapped handlers.
type Middleware struct {
	authMode   string
	jwtManager *JWTManager
	deny       DenyFunc
}

// NewMiddleware builds the middleware for cfg. With auth_mode=jwt a JWT
// manager is created from the same settings.
func NewMiddleware(cfg *config.SecurityConfig, deny DenyFunc) (*Middleware, error) {
	if deny == nil {
		deny = plainDeny
	}
	m := &Middleware{authMode: cfg.AuthMode, deny: deny}
	if cfg.AuthMode == "jwt" {
		mgr, err := NewJWTManager(cfg)
		if err != nil {
			return nil, err
		}
		m.jwtManager = mgr
	}
	return m, nil
}

// RequireAdmin rejects requests without a valid admin token.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.authMode != "jwt" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			m.deny(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Admin token rejected")
			m.deny(w, r, http.StatusUnauthorized, msg)
			return
		}
		if claims.Role != RoleAdmin {
			m.deny(w, r, http.StatusForbidden, "admin role required")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the claims stored by RequireAdmin.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return c, ok
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
