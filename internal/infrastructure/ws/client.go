package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// Client is one live connection. Its send channel is owned by the Core: only
// the dispatch goroutine writes to it or closes it.
type Client struct {
	conn *connWrapper
	send chan *Envelope
	ID   string `json:"id"`
}

func NewClient(conn *websocket.Conn, buffer int) *Client {
	if buffer <= 0 {
		buffer = 64
	}
	return &Client{
		conn: newConnWrapper(conn),
		send: make(chan *Envelope, buffer), // buffered to avoid dead-locks on slow clients
		ID:   uuid.NewString(),
	}
}

// ReadMessage decodes inbound frames and hands them to the core until the
// connection fails. Undecodable frames and unknown events are skipped.
func (c *Client) ReadMessage(ctx context.Context, core *Core) {
	defer func() {
		core.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.conn.SetPongHandler(func(string) error {
		return c.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				core.logger.Debugw("ws read error", "client", c.ID, "error", err)
			}
			return
		}

		c.dispatch(ctx, core, raw)
	}
}

func (c *Client) dispatch(ctx context.Context, core *Core, raw []byte) {
	var in inboundEnvelope
	if err := json.Unmarshal(raw, &in); err != nil {
		core.logger.Debugw("ignoring malformed frame", "client", c.ID, "error", err)
		return
	}

	switch in.Event {
	case JoinEvent:
		var p RoomPayload
		decodeLenient(in.Data, &p)
		core.Join(ctx, c, p)
	case LeaveEvent:
		var p RoomPayload
		decodeLenient(in.Data, &p)
		core.Leave(ctx, c, p)
	case SendMessageEvent:
		var p SendMessagePayload
		decodeLenient(in.Data, &p)
		core.SendMessage(ctx, c, p)
	default:
		core.logger.Debugw("ignoring unknown event", "client", c.ID, "event", in.Event)
	}
}

// decodeLenient fills whatever fields decode; a bad payload leaves zero values.
func decodeLenient(data json.RawMessage, v any) {
	if len(data) == 0 {
		return
	}
	_ = json.Unmarshal(data, v)
}

func (c *Client) WriteMessage() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage)
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage); err != nil {
				return
			}
		}
	}
}
