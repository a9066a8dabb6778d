package repository

import (
	"context"
	"sync"

	"github.com/hilthontt/synchat/internal/domain"
)

// roomRepository keeps rooms in process memory. Used by the "memory" storage driver.
type roomRepository struct {
	rooms map[string]domain.Room // ID -> Room
	mu    *sync.RWMutex
}

func NewRoomRepository() domain.RoomRepository {
	return &roomRepository{
		rooms: make(map[string]domain.Room),
		mu:    &sync.RWMutex{},
	}
}

func (r *roomRepository) Create(ctx context.Context, room *domain.Room) error {
	if room == nil || room.ID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.ID]; exists {
		return domain.ErrInvalidInput
	}
	r.rooms[room.ID] = *room

	return nil
}

// GetByID returns a copy so callers cannot mutate the stored expiry.
func (r *roomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	if id == "" {
		return nil, domain.ErrRoomNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[id]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	return &room, nil
}

func (r *roomRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[id]; !exists {
		return false, nil // idempotent: already gone
	}
	delete(r.rooms, id)

	return true, nil
}
