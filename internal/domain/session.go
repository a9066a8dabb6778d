package domain

// Membership ties one live connection to one room under a display name.
// It is never persisted.
type Membership struct {
	ConnectionID string `json:"connectionId"`
	Username     string `json:"username"`
	RoomID       string `json:"roomId"`
}

func NewMembership(connectionID, username, roomID string) Membership {
	return Membership{
		ConnectionID: connectionID,
		Username:     username,
		RoomID:       roomID,
	}
}
