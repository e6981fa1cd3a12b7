package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	ok := Check{Name: "postgres", Ping: func(ctx context.Context) error { return nil }}
	down := Check{Name: "redis", Ping: func(ctx context.Context) error { return errors.New("connection refused") }}

	tests := []struct {
		name       string
		readiness  func() bool
		wantStatus int
		wantBody   string
	}{
		{name: "no readiness", wantStatus: http.StatusOK, wantBody: `{"status":"ok"}`},
		{name: "all dependencies up", readiness: Readiness(ok), wantStatus: http.StatusOK, wantBody: `{"status":"ok"}`},
		{name: "one dependency down", readiness: Readiness(ok, down), wantStatus: http.StatusServiceUnavailable, wantBody: `{"status":"not ready"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			Handler(tt.readiness)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tt.wantStatus, rec.Code)
			require.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
