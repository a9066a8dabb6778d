package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hilthontt/synchat/internal/domain"
	"gorm.io/gorm"
)

type sqlRoomRepository struct {
	db *gorm.DB
}

func NewSQLRoomRepository(db *gorm.DB) domain.RoomRepository {
	return &sqlRoomRepository{db: db}
}

func (r *sqlRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if room == nil || room.ID == "" {
		return domain.ErrInvalidInput
	}
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func (r *sqlRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	var room domain.Room
	if err := r.db.WithContext(ctx).First(&room, "room_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	return &room, nil
}

func (r *sqlRoomRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&domain.Room{}, "room_id = ?", id)
	if err := result.Error; err != nil {
		return false, fmt.Errorf("failed to delete room: %w", err)
	}
	return result.RowsAffected > 0, nil
}
