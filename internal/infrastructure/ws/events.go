package ws

// Inbound events.
const (
	JoinEvent        = "join"
	SendMessageEvent = "send_message"
	LeaveEvent       = "leave"
)

// Outbound events.
const (
	StatusEvent         = "status"
	ReceiveMessageEvent = "receive_message"
	ErrorEvent          = "error"
)
