package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/raddle-teams-backend/internal/store"
)

type ctxKey int

const playerKey ctxKey = iota

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)))
		})
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// adminOnly accepts the admin password as a bearer token, or as ?token= for
// websocket upgrades where browsers cannot set headers.
func adminOnly(password string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				writeError(w, r, log, fmt.Errorf("missing authentication token: %w", errUnauthorized))
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(password)) != 1 {
				writeError(w, r, log, fmt.Errorf("invalid admin credentials: %w", errUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// playerOnly resolves the bearer session id to a player and stores it on the context.
func playerOnly(repo store.Repository, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, r, log, fmt.Errorf("missing session token: %w", errUnauthorized))
				return
			}
			p, err := repo.FindPlayerBySession(r.Context(), token)
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, r, log, fmt.Errorf("unknown session: %w", errUnauthorized))
				return
			}
			if err != nil {
				writeError(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), playerKey, p)))
		})
	}
}

func playerFrom(ctx context.Context) store.Player {
	p, _ := ctx.Value(playerKey).(store.Player)
	return p
}
