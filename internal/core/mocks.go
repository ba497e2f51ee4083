package core

import (
	"context"
	"sync"
	"time"
)

// --- MockAuthenticator ---

// MockAuthenticator implements Authenticator for testing.
//
// Usage:
//
//	mock := &MockAuthenticator{ValidToken: "secret"}
//	err := mock.Authenticate(ctx, "secret") // nil
type MockAuthenticator struct {
	// ValidToken is accepted; every other token gets Err.
	ValidToken string

	// Err is returned for rejected tokens. Nil means a generic auth_token_invalid.
	Err error

	mu    sync.Mutex
	Calls []string
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, token string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, token)
	m.mu.Unlock()

	if token == m.ValidToken {
		return nil
	}
	if m.Err != nil {
		return m.Err
	}
	return NewStaticTokenAuthenticator("").Authenticate(ctx, token)
}

// --- MockRateLimiter ---

// MockRateLimiter returns Result for every key and records the keys.
type MockRateLimiter struct {
	Result RateLimitResult

	mu   sync.Mutex
	Keys []string
}

func (m *MockRateLimiter) Allow(key string) RateLimitResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Keys = append(m.Keys, key)
	return m.Result
}

// --- MockHealthProbe ---

// MockHealthProbe returns Err from Check, optionally after Delay.
type MockHealthProbe struct {
	ProbeName string
	Err       error
	Delay     time.Duration
}

func (m *MockHealthProbe) Name() string { return m.ProbeName }

func (m *MockHealthProbe) Check(ctx context.Context) error {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.Err
}

// --- MockMetricsCollector ---

// RequestRecord is one RecordRequest call.
type RequestRecord struct {
	Method, Route, Status string
	Duration              time.Duration
}

// MockMetricsCollector records every request.
type MockMetricsCollector struct {
	mu      sync.Mutex
	Records []RequestRecord
}

func (m *MockMetricsCollector) RecordRequest(method, route, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, RequestRecord{Method: method, Route: route, Status: status, Duration: duration})
}
