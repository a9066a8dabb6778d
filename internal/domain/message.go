package domain

import (
	"context"
	"time"
)

// MaxSenderLength is the width of the stored sender column.
const MaxSenderLength = 50

// Message is a persisted text chat line. Image and file messages are never stored.
type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	RoomID    string    `json:"roomId" gorm:"column:room_id;size:36;not null;index"`
	Sender    string    `json:"sender" gorm:"column:sender;size:50"`
	Text      string    `json:"text" gorm:"column:text;type:text;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"column:timestamp;not null"`
}

func (Message) TableName() string { return "messages" }

type MessageRepository interface {
	// Append stores a text message. Empty text is silently ignored.
	Append(ctx context.Context, roomID, sender, text string) error
	DeleteAll(ctx context.Context, roomID string) error
}
