package rooms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/synchat/internal/domain"
	"go.uber.org/zap"
)

type brokenService struct{ err error }

func (s brokenService) Create(context.Context) (*domain.Room, error) { return nil, s.err }

func (s brokenService) Get(context.Context, string) (*domain.Room, error) { return nil, s.err }

func (s brokenService) Delete(context.Context, string) (bool, error) { return false, s.err }

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/rooms", h.CreateRoomHandler)
	r.Get("/create", h.CreateAndRedirectHandler)
	r.Get("/api/rooms/{roomId}", h.GetRoomHandler)
	r.Delete("/api/rooms/{roomId}", h.DeleteRoomHandler)
	return r
}

func TestHandler_StorageFailuresBecome500(t *testing.T) {
	h := NewHandler(brokenService{err: errors.New("database is down")}, zap.NewNop().Sugar())
	router := newRouter(h)

	tests := []struct {
		method, path string
	}{
		{http.MethodPost, "/api/rooms"},
		{http.MethodGet, "/create"},
		{http.MethodGet, "/api/rooms/abc"},
		{http.MethodDelete, "/api/rooms/abc"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != http.StatusInternalServerError {
				t.Errorf("expected 500, got %d", rec.Code)
			}
		})
	}
}

func TestHandler_ExpiredTakesPrecedenceOverNotFound(t *testing.T) {
	h := NewHandler(brokenService{err: domain.ErrRoomExpired}, zap.NewNop().Sugar())

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/abc", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, msgSessionExpired) {
		t.Errorf("expected expired message, got %s", body)
	}
}
