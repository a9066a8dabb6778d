package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewRoom(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 0, 0, time.UTC)
	room := NewRoom(now)

	if _, err := uuid.Parse(room.ID); err != nil {
		t.Fatalf("expected uuid room id, got %q: %v", room.ID, err)
	}
	if !room.CreatedAt.Equal(now) {
		t.Errorf("expected created_at %v, got %v", now, room.CreatedAt)
	}
	if got := room.ExpiryAt.Sub(room.CreatedAt); got != 30*time.Minute {
		t.Errorf("expected expiry 30m after creation, got %v", got)
	}

	other := NewRoom(now)
	if other.ID == room.ID {
		t.Error("expected distinct room ids")
	}
}

func TestIsExpired(t *testing.T) {
	room := NewRoom(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"at creation", room.CreatedAt, false},
		{"just before expiry", room.ExpiryAt.Add(-time.Second), false},
		{"exactly at expiry", room.ExpiryAt, false},
		{"after expiry", room.ExpiryAt.Add(time.Nanosecond), true},
		{"long after", room.ExpiryAt.Add(24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExpired(room, tt.now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
