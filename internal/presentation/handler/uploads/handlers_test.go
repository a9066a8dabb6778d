package uploads

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/synchat/internal/domain"
	"github.com/hilthontt/synchat/internal/infrastructure/blob"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// vanishingRoom is active for the first lookup only.
type vanishingRoom struct {
	mu    sync.Mutex
	calls int
}

func (v *vanishingRoom) Get(_ context.Context, id string) (*domain.Room, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.calls > 1 {
		return nil, domain.ErrRoomNotFound
	}
	return &domain.Room{ID: id}, nil
}

func TestUploadHandler_RoomTornDownDuringUpload(t *testing.T) {
	logger := zap.NewNop().Sugar()
	fs := afero.NewMemMapFs()
	store, err := blob.NewLocalStorage(fs, "/uploads", domain.MaxBlobSize, logger)
	if err != nil {
		t.Fatalf("failed to create blob storage: %v", err)
	}

	h := NewHandler(&vanishingRoom{}, store, nil, logger, 0)
	router := chi.NewRouter()
	router.Post("/api/rooms/{roomId}/upload", h.UploadHandler)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "cat.png")
	_, _ = part.Write([]byte("png"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/rooms/room-1/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	if exists, _ := afero.DirExists(fs, "/uploads/room-1"); exists {
		t.Error("expected the late upload to be removed")
	}
}
