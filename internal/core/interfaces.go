package core

import (
	"context"
	"time"
)

// Authenticator decides whether a bearer token may call protected routes.
type Authenticator interface {
	// Authenticate returns nil for an accepted token. Rejections should be
	// a *types.AppError with an auth_* code.
	Authenticate(ctx context.Context, token string) error
}

// RateLimiter enforces a request budget per client key.
type RateLimiter interface {
	Allow(key string) RateLimitResult
}

// RateLimitResult contains the outcome of a rate limit check.
type RateLimitResult struct {
	// Allowed indicates whether the request is within the rate limit.
	Allowed bool
	// Limit is the maximum number of requests per window.
	Limit int
	// Remaining is the number of requests remaining in the current window.
	Remaining int
	// ResetAt is when the client's budget is fully replenished.
	ResetAt time.Time
	// RetryAfter is how long a rejected client must wait for one request.
	RetryAfter time.Duration
}
