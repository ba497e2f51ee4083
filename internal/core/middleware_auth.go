package core

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"tradenotify/internal/types"
)

// StaticTokenAuthenticator accepts exactly one shared secret.
type StaticTokenAuthenticator struct {
	token []byte
}

// NewStaticTokenAuthenticator creates an authenticator for secret.
func NewStaticTokenAuthenticator(secret types.SecretString) *StaticTokenAuthenticator {
	return &StaticTokenAuthenticator{token: []byte(secret.Unmask())}
}

// Authenticate compares in constant time.
func (a *StaticTokenAuthenticator) Authenticate(_ context.Context, token string) error {
	if len(a.token) == 0 || subtle.ConstantTimeCompare([]byte(token), a.token) != 1 {
		return types.NewAppError(types.ErrCodeAuthTokenInvalid, "Invalid token", nil)
	}
	return nil
}

// AuthMiddleware requires a valid "Bearer <token>" Authorization header.
// It is mounted on the protected route group only, so public endpoints and
// unknown routes never reach it.
//
// If the Authenticator is nil the middleware passes through.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Authenticator == nil {
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			s.Logger.Warn("missing authorization token",
				slog.String("ip", clientIP(r)),
				slog.String("path", r.URL.Path),
			)
			s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Authorization token required")
			return
		}

		if err := s.Authenticator.Authenticate(r.Context(), token); err != nil {
			s.handleAuthError(w, r, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractBearerToken returns the token from "Bearer <token>" (scheme is
// case-insensitive per RFC 7235), or "" if the header is malformed.
func extractBearerToken(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(prefix):])
}

func (s *Server) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) && strings.HasPrefix(string(appErr.Code), "auth_") {
		s.Logger.Warn("invalid authorization token",
			slog.String("ip", clientIP(r)),
			slog.String("path", r.URL.Path),
			slog.String("error_code", string(appErr.Code)),
		)
		s.writeAuthError(w, r, appErr.Code, appErr.Message)
		return
	}

	s.Logger.Error("authentication failed: unexpected error",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Invalid token")
}

func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, code types.ErrorCode, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="tradenotify"`)
	JSON(w, r, http.StatusUnauthorized, newErrorResponse(r, code, message, nil))
}
