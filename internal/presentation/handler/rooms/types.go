package rooms

import "time"

type createRoomResponse struct {
	RoomID    string    `json:"room_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiryAt  time.Time `json:"expiry_at"`
}

type roomResponse struct {
	RoomID      string    `json:"room_id"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiryAt    time.Time `json:"expiry_at"`
	ExpiryMs    int64     `json:"expiry_ms"`
	ServerNowMs int64     `json:"server_now_ms"`
}
