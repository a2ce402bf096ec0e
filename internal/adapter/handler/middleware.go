package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/core/service"
)

type claimsKey struct{}

func withClaims(ctx context.Context, c domain.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func claimsFrom(ctx context.Context) domain.Claims {
	c, _ := ctx.Value(claimsKey{}).(domain.Claims)
	return c
}

// authenticate rejects requests without a valid "Bearer <token>" header.
func authenticate(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeJSON(w, http.StatusUnauthorized, ErrorHTTPResponse{
					Error:   domain.Kind(domain.ErrUnauthorized),
					Message: "missing bearer token",
				})
				return
			}

			claims, err := auth.Verify(token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, ErrorHTTPResponse{
					Error:   domain.Kind(domain.ErrUnauthorized),
					Message: "invalid or expired token",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
