package ws

import (
	"encoding/json"
	"fmt"
)

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
)

const SessionExpiredMessage = "This session has expired!"

// Envelope is the frame exchanged on the socket in both directions.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RoomPayload is the body of join and leave.
type RoomPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

type SendMessagePayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
	Msg      string `json:"msg"`
	Type     string `json:"type"`
	URL      string `json:"url,omitempty"`
}

type StatusPayload struct {
	Msg string `json:"msg"`
}

type TextMessagePayload struct {
	Username string      `json:"username"`
	Type     MessageKind `json:"type"`
	Msg      string      `json:"msg"`
}

type ImageMessagePayload struct {
	Username string      `json:"username"`
	Type     MessageKind `json:"type"`
	URL      string      `json:"url"`
}

// Variant is the resolved shape of a send_message. Every payload maps to
// exactly one variant; VariantFallback absorbs anything malformed.
type Variant int

const (
	VariantFallback Variant = iota
	VariantText
	VariantImage
)

func (v Variant) String() string {
	switch v {
	case VariantText:
		return "text"
	case VariantImage:
		return "image"
	default:
		return "fallback"
	}
}

// Persisted reports whether the variant is written to the message store.
func (v Variant) Persisted() bool {
	return v == VariantText
}

func Classify(p SendMessagePayload) Variant {
	kind := MessageKind(p.Type)
	if kind == "" {
		kind = KindText
	}

	switch {
	case kind == KindText && p.Msg != "":
		return VariantText
	case kind != KindText && p.URL != "":
		return VariantImage
	default:
		return VariantFallback
	}
}

func NewReceiveMessage(v Variant, p SendMessagePayload) *Envelope {
	if v == VariantImage {
		return &Envelope{
			Event: ReceiveMessageEvent,
			Data: ImageMessagePayload{
				Username: p.Username,
				Type:     KindImage,
				URL:      p.URL,
			},
		}
	}

	return &Envelope{
		Event: ReceiveMessageEvent,
		Data: TextMessagePayload{
			Username: p.Username,
			Type:     KindText,
			Msg:      p.Msg,
		},
	}
}

func NewStatus(msg string) *Envelope {
	return &Envelope{
		Event: StatusEvent,
		Data:  StatusPayload{Msg: msg},
	}
}

func NewJoined(username string) *Envelope {
	return NewStatus(fmt.Sprintf("%s has joined the room.", username))
}

func NewLeft(username string) *Envelope {
	return NewStatus(fmt.Sprintf("%s has left the room.", username))
}

func NewError(msg string) *Envelope {
	return &Envelope{
		Event: ErrorEvent,
		Data:  StatusPayload{Msg: msg},
	}
}
