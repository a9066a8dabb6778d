package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestGetReady(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   int
	}{
		{"no checks", nil, http.StatusOK},
		{"passing", map[string]Check{"database": func(context.Context) error { return nil }}, http.StatusOK},
		{"failing", map[string]Check{"database": func(context.Context) error { return errors.New("down") }}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(zap.NewNop().Sugar(), tt.checks)
			rec := httptest.NewRecorder()
			h.GetReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
