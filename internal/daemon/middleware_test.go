package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/felixgeelhaar/circuitscribe/internal/auth"
	"github.com/google/uuid"
)

func TestGetCorrelationID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"set", context.WithValue(context.Background(), CorrelationIDKey, "abc"), "abc"},
		{"empty", context.Background(), ""},
		{"wrong type", context.WithValue(context.Background(), CorrelationIDKey, 12345), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCorrelationID(tt.ctx); got != tt.want {
				t.Errorf("GetCorrelationID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCorrelationIDMiddleware_GeneratesID(t *testing.T) {
	var capturedID string
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetCorrelationID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if _, err := uuid.Parse(capturedID); err != nil {
		t.Errorf("generated ID %q is not a UUID: %v", capturedID, err)
	}
	if got := rec.Header().Get(CorrelationIDHeader); got != capturedID {
		t.Errorf("response header ID %q != captured ID %q", got, capturedID)
	}
}

func TestCorrelationIDMiddleware_PropagatesExistingID(t *testing.T) {
	var capturedID string
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(CorrelationIDHeader, "existing-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if capturedID != "existing-id" {
		t.Errorf("captured ID = %q", capturedID)
	}
	if got := rec.Header().Get(CorrelationIDHeader); got != "existing-id" {
		t.Errorf("response header ID = %q", got)
	}
}

func TestLoggingMiddleware_CapturesStatusCode(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		writeHeader bool
	}{
		{"ok", http.StatusOK, true},
		{"bad request", http.StatusBadRequest, true},
		{"internal error", http.StatusInternalServerError, true},
		{"implicit ok", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.writeHeader {
					w.WriteHeader(tt.statusCode)
				}
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

			if rec.Code != tt.statusCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.statusCode)
			}
		})
	}
}

func TestRecoveryMiddleware_CatchesPanic(t *testing.T) {
	handler := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("panic response is not JSON: %v", err)
	}
	if body["error"] != "internal server error" {
		t.Errorf("body = %v", body)
	}
}

func TestRequireLearner(t *testing.T) {
	var got string
	handler := requireLearner(auth.HeaderAuthenticator{}, func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.LearnerFrom(r.Context())
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(auth.LearnerHeader, "l1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got != "l1" {
		t.Errorf("learner in context = %q, want l1", got)
	}
}

func TestMiddlewareChain_WithPanic(t *testing.T) {
	var capturedID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetCorrelationID(r.Context())
		panic("simulated panic")
	})
	handler := correlationIDMiddleware(recoveryMiddleware(loggingMiddleware(inner)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if capturedID == "" {
		t.Error("correlation ID should be set before the panic")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	if got := clientKey(req); got != "192.0.2.7" {
		t.Errorf("clientKey() = %q", got)
	}
	req.RemoteAddr = "pipe"
	if got := clientKey(req); got != "pipe" {
		t.Errorf("clientKey() = %q", got)
	}
}
