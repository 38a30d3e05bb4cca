package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type callerKey struct{}

// WithCaller stores the authenticated caller on ctx.
func WithCaller(ctx context.Context, c model.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller stored by Authenticate.
func CallerFrom(ctx context.Context) (model.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(model.Caller)
	return c, ok
}

// Logger writes one access log line per request.
func (h *Handler) Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		h.log.WithContext(r.Context()).Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_ip", r.RemoteAddr),
		)
	})
}

// Metrics records request counts and latency by route pattern.
func (h *Handler) Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		h.metrics.ObserveRequest(route, r.Method, ww.Status(), time.Since(start))
	})
}

// CORS is a permissive CORS policy for browser clients.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate resolves the Bearer token into a caller.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeErrorCode(w, http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header is required")
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(header, bearerPrefix) || len(header) == len(bearerPrefix) {
			writeErrorCode(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid authorization header format")
			return
		}

		caller, err := h.tokens.Parse(header[len(bearerPrefix):])
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				writeErrorCode(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Access token has expired")
				return
			}
			writeErrorCode(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid access token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// RequireRole rejects callers that hold none of roles.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFrom(r.Context())
			if !ok {
				writeErrorCode(w, http.StatusUnauthorized, model.CodeUnauthorized, "User not authenticated")
				return
			}
			for _, role := range roles {
				if caller.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeErrorCode(w, http.StatusForbidden, model.CodeForbidden, "Insufficient permissions")
		})
	}
}
