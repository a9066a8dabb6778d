package uploads

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/synchat/internal/domain"
	"github.com/hilthontt/synchat/internal/infrastructure/json"
	"github.com/hilthontt/synchat/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

const (
	msgRoomNotFound    = "Room not found"
	msgNoFilePart      = "No file part"
	msgNoSelectedFile  = "No selected file"
	msgUnsupportedType = "Unsupported file type"
	msgFileTooLarge    = "File too large"
)

// multipart form values kept in memory before spilling to disk.
const formMemory = 32 << 10

// Upload results.
const (
	resultStored   = "stored"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// RoomFinder resolves an active room.
type RoomFinder interface {
	Get(ctx context.Context, id string) (*domain.Room, error)
}

type Handler struct {
	rooms   RoomFinder
	blobs   domain.BlobStore
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
	maxSize int64
}

func NewHandler(
	rooms RoomFinder,
	blobs domain.BlobStore,
	m *metrics.Metrics,
	logger *zap.SugaredLogger,
	maxSize int64,
) *Handler {
	if maxSize <= 0 {
		maxSize = domain.MaxBlobSize
	}
	return &Handler{
		rooms:   rooms,
		blobs:   blobs,
		metrics: m,
		logger:  logger,
		maxSize: maxSize,
	}
}

func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	if _, err := h.rooms.Get(r.Context(), roomID); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			h.reject(w, http.StatusNotFound, msgRoomNotFound)
			return
		}
		h.fail(w, roomID, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(w, http.StatusRequestEntityTooLarge, msgFileTooLarge)
			return
		}
		h.reject(w, http.StatusBadRequest, msgNoFilePart)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		// a part named "file" without a filename is parsed as a plain value
		if _, ok := r.MultipartForm.Value["file"]; ok {
			h.reject(w, http.StatusBadRequest, msgNoSelectedFile)
			return
		}
		h.reject(w, http.StatusBadRequest, msgNoFilePart)
		return
	}
	defer file.Close()

	blob, err := h.blobs.Put(r.Context(), roomID, header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyFilename):
			h.reject(w, http.StatusBadRequest, msgNoSelectedFile)
		case errors.Is(err, domain.ErrUnsupportedFileType):
			h.reject(w, http.StatusBadRequest, msgUnsupportedType)
		case errors.Is(err, domain.ErrFileTooLarge):
			h.reject(w, http.StatusRequestEntityTooLarge, msgFileTooLarge)
		default:
			h.fail(w, roomID, err)
		}
		return
	}

	// a teardown that finished while the file was written has already
	// cleaned the room, so the new file must go too
	if _, err := h.rooms.Get(r.Context(), roomID); err != nil {
		if !errors.Is(err, domain.ErrRoomNotFound) {
			h.fail(w, roomID, err)
			return
		}
		if err := h.blobs.DeleteAll(context.WithoutCancel(r.Context()), roomID); err != nil {
			h.logger.Warnw("failed to remove upload for torn down room", "room", roomID, "error", err)
		}
		h.reject(w, http.StatusNotFound, msgRoomNotFound)
		return
	}

	h.metrics.Upload(resultStored)
	h.logger.Infow("file uploaded", "room", roomID, "name", blob.Name, "type", blob.Kind, "size", blob.Size)

	_ = json.Write(w, http.StatusOK, uploadResponse{
		OK:       true,
		URL:      blob.URL,
		Type:     string(blob.Kind),
		Filename: blob.Filename,
	})
}

// ServeHandler streams a stored blob back. There is no room check, so
// links keep working until the room is torn down.
func (h *Handler) ServeHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	name := chi.URLParam(r, "filename")

	f, err := h.blobs.Open(r.Context(), roomID, name)
	if err != nil {
		if errors.Is(err, domain.ErrBlobNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Errorw("failed to open upload", "room", roomID, "name", name, "error", err)
		json.WriteInternalError(w, err)
		return
	}
	defer f.Close()

	http.ServeContent(w, r, name, time.Time{}, f)
}

func (h *Handler) reject(w http.ResponseWriter, status int, msg string) {
	h.metrics.Upload(resultRejected)
	json.WriteFailure(w, status, msg)
}

func (h *Handler) fail(w http.ResponseWriter, roomID string, err error) {
	h.metrics.Upload(resultFailed)
	h.logger.Errorw("upload failed", "room", roomID, "error", err)
	json.WriteInternalError(w, err)
}
