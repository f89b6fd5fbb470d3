package cron

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/submgr/billing/internal/testutil"
	"github.com/submgr/billing/pkg/shutdown"
)

func newTestHandler(job JobFunc) *Handler {
	tracker := shutdown.NewJobTracker(testutil.NopLogger{})
	h := NewHandler("secret", tracker, testutil.NopLogger{})
	h.RegisterJob("billing", job)
	return h
}

func TestHandler_Trigger_RequiresSecret(t *testing.T) {
	h := newTestHandler(func(ctx context.Context, today time.Time) error { return nil })
	mux := h.Mux()

	req := httptest.NewRequest(http.MethodPost, "/cron/billing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/cron/billing", nil)
	req.Header.Set("X-Cron-Secret", "wrong")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/cron/billing", nil)
	req.Header.Set("X-Cron-Secret", "secret")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Trigger_BearerToken(t *testing.T) {
	h := newTestHandler(func(ctx context.Context, today time.Time) error { return nil })
	mux := h.Mux()

	req := httptest.NewRequest(http.MethodPost, "/cron/billing", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Trigger_AsOfDate(t *testing.T) {
	var got time.Time
	h := newTestHandler(func(ctx context.Context, today time.Time) error {
		got = today
		return nil
	})
	mux := h.Mux()

	body := strings.NewReader(`{"as_of_date": "2024-05-10"}`)
	req := httptest.NewRequest(http.MethodPost, "/cron/billing", body)
	req.Header.Set("X-Cron-Secret", "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), got)
	assert.Contains(t, rec.Body.String(), `"as_of_date":"2024-05-10"`)
}

func TestHandler_Trigger_InvalidDate(t *testing.T) {
	h := newTestHandler(func(ctx context.Context, today time.Time) error { return nil })
	mux := h.Mux()

	body := strings.NewReader(`{"as_of_date": "10.05.2024"}`)
	req := httptest.NewRequest(http.MethodPost, "/cron/billing", body)
	req.Header.Set("X-Cron-Secret", "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Trigger_JobErrorReported(t *testing.T) {
	h := newTestHandler(func(ctx context.Context, today time.Time) error {
		return errors.New("cycle aborted")
	})
	mux := h.Mux()

	req := httptest.NewRequest(http.MethodPost, "/cron/billing", nil)
	req.Header.Set("X-Cron-Secret", "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "cycle aborted")
}

func TestHandler_Trigger_GetRejected(t *testing.T) {
	h := newTestHandler(func(ctx context.Context, today time.Time) error { return nil })
	mux := h.Mux()

	req := httptest.NewRequest(http.MethodGet, "/cron/billing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_Trigger_RejectedDuringShutdown(t *testing.T) {
	tracker := shutdown.NewJobTracker(testutil.NopLogger{})
	h := NewHandler("secret", tracker, testutil.NopLogger{})
	h.RegisterJob("billing", func(ctx context.Context, today time.Time) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tracker.Shutdown(ctx))

	req := httptest.NewRequest(http.MethodPost, "/cron/billing", nil)
	req.Header.Set("X-Cron-Secret", "secret")
	rec := httptest.NewRecorder()
	h.Mux().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandler_HealthCheck(t *testing.T) {
	h := newTestHandler(func(ctx context.Context, today time.Time) error { return nil })

	req := httptest.NewRequest(http.MethodGet, "/cron/health", nil)
	rec := httptest.NewRecorder()
	h.Mux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
