package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RoomTTL is the fixed lifetime of every room.
const RoomTTL = 30 * time.Minute

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExpired  = fmt.Errorf("session expired: %w", ErrRoomNotFound)
	ErrInvalidInput = errors.New("invalid input")
)

// Room is a disposable chat room addressed by an opaque token.
// ExpiryAt is fixed at creation and never updated.
type Room struct {
	ID        string    `json:"roomId" gorm:"column:room_id;primaryKey;size:36"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at;not null"`
	ExpiryAt  time.Time `json:"expiryAt" gorm:"column:expiry_time;not null"`
}

func (Room) TableName() string { return "chat_rooms" }

type RoomRepository interface {
	Create(ctx context.Context, room *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
	// Delete reports whether a room was removed. Missing rooms are not an error.
	Delete(ctx context.Context, id string) (bool, error)
}

func NewRoom(now time.Time) *Room {
	now = now.UTC()
	return &Room{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiryAt:  now.Add(RoomTTL),
	}
}

// IsExpired is the lazy expiry policy evaluated on every room read.
func IsExpired(room *Room, now time.Time) bool {
	return now.After(room.ExpiryAt)
}
