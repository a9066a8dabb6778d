package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hilthontt/synchat/internal/domain"
	"gorm.io/gorm"
)

type sqlMessageRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQLMessageRepository(db *gorm.DB) domain.MessageRepository {
	return &sqlMessageRepository{db: db, now: time.Now}
}

func (r *sqlMessageRepository) Append(ctx context.Context, roomID, sender, text string) error {
	if text == "" {
		return nil
	}

	message := &domain.Message{
		RoomID:    roomID,
		Sender:    sender,
		Text:      text,
		Timestamp: r.now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (r *sqlMessageRepository) DeleteAll(ctx context.Context, roomID string) error {
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&domain.Message{}).Error; err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}
