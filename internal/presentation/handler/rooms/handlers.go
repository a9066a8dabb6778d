package rooms

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/synchat/internal/domain"
	"github.com/hilthontt/synchat/internal/infrastructure/json"
	"go.uber.org/zap"
)

const (
	msgRoomNotFound   = "Room not found!"
	msgSessionExpired = "This session has expired!"
	msgRoomDeleted    = "Room and messages deleted"
	msgRoomGone       = "Room already removed"
)

// RoomService is the room lifecycle the handlers drive.
type RoomService interface {
	Create(ctx context.Context) (*domain.Room, error)
	Get(ctx context.Context, id string) (*domain.Room, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type Handler struct {
	rooms  RoomService
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewHandler(rooms RoomService, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		rooms:  rooms,
		logger: logger,
		now:    time.Now,
	}
}

func (h *Handler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.Create(r.Context())
	if err != nil {
		h.logger.Errorw("failed to create room", "error", err)
		json.WriteInternalError(w, err)
		return
	}

	_ = json.Write(w, http.StatusCreated, createRoomResponse{
		RoomID:    room.ID,
		CreatedAt: room.CreatedAt,
		ExpiryAt:  room.ExpiryAt,
	})
}

// CreateAndRedirectHandler creates a room and sends the browser to its chat page.
func (h *Handler) CreateAndRedirectHandler(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.Create(r.Context())
	if err != nil {
		h.logger.Errorw("failed to create room", "error", err)
		json.WriteInternalError(w, err)
		return
	}

	http.Redirect(w, r, "/chat/"+room.ID, http.StatusFound)
}

// GetRoomHandler serves both the API lookup and the chat page open. Either
// one tears down a room found past its expiry.
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	room, err := h.rooms.Get(r.Context(), roomID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomExpired):
			json.WriteFailure(w, http.StatusNotFound, msgSessionExpired)
		case errors.Is(err, domain.ErrRoomNotFound):
			json.WriteFailure(w, http.StatusNotFound, msgRoomNotFound)
		default:
			h.logger.Errorw("failed to load room", "room", roomID, "error", err)
			json.WriteInternalError(w, err)
		}
		return
	}

	_ = json.Write(w, http.StatusOK, roomResponse{
		RoomID:      room.ID,
		CreatedAt:   room.CreatedAt,
		ExpiryAt:    room.ExpiryAt,
		ExpiryMs:    room.ExpiryAt.UnixMilli(),
		ServerNowMs: h.now().UnixMilli(),
	})
}

func (h *Handler) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	removed, err := h.rooms.Delete(r.Context(), roomID)
	if err != nil {
		h.logger.Errorw("failed to delete room", "room", roomID, "error", err)
		json.WriteInternalError(w, err)
		return
	}

	if !removed {
		json.WriteOK(w, msgRoomGone)
		return
	}
	json.WriteOK(w, msgRoomDeleted)
}
