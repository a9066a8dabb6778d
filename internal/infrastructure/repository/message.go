package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hilthontt/synchat/internal/domain"
)

// messageRepository keeps text messages in process memory, grouped per room.
type messageRepository struct {
	messages map[string][]domain.Message // roomID -> []Message
	nextID   uint
	now      func() time.Time
	mu       *sync.RWMutex
}

func NewMessageRepository() domain.MessageRepository {
	return &messageRepository{
		messages: make(map[string][]domain.Message),
		now:      time.Now,
		mu:       &sync.RWMutex{},
	}
}

func (r *messageRepository) Append(ctx context.Context, roomID, sender, text string) error {
	if text == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.messages[roomID] = append(r.messages[roomID], domain.Message{
		ID:        r.nextID,
		RoomID:    roomID,
		Sender:    sender,
		Text:      text,
		Timestamp: r.now().UTC(),
	})

	return nil
}

func (r *messageRepository) DeleteAll(ctx context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.messages, roomID)
	return nil
}
