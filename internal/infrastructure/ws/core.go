package ws

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/hilthontt/synchat/internal/domain"
	"github.com/hilthontt/synchat/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// RoomGuard resolves a room id to an active room.
type RoomGuard interface {
	Get(ctx context.Context, id string) (*domain.Room, error)
}

type eventKind int

const (
	registerEvent eventKind = iota
	unregisterEvent
	joinEvent
	leaveEvent
	publishEvent
	notifyEvent
)

type event struct {
	kind       eventKind
	client     *Client
	membership domain.Membership
	roomID     string
	envelope   *Envelope
}

// Core is the session gateway. All membership changes and broadcasts go
// through one channel consumed by Run, so a broadcast never observes a
// half-applied join or leave and each client's events keep their order.
type Core struct {
	rooms          *RoomManager
	messages       domain.MessageRepository
	guard          RoomGuard
	strict         bool
	metrics        *metrics.Metrics
	logger         *zap.SugaredLogger
	persistTimeout time.Duration

	events chan event
	done   chan struct{}
}

type CoreOption func(*Core)

// WithRoomGuard restricts persistence to active rooms. Broadcasts are not
// affected unless WithRequireActiveRoom is also set.
func WithRoomGuard(guard RoomGuard) CoreOption {
	return func(c *Core) { c.guard = guard }
}

// WithRequireActiveRoom makes join and send_message answer the sender with an
// error for absent or expired rooms. It needs a RoomGuard.
func WithRequireActiveRoom() CoreOption {
	return func(c *Core) { c.strict = true }
}

func WithCoreMetrics(m *metrics.Metrics) CoreOption {
	return func(c *Core) { c.metrics = m }
}

func WithPersistTimeout(d time.Duration) CoreOption {
	return func(c *Core) { c.persistTimeout = d }
}

func NewCore(messageRepository domain.MessageRepository, logger *zap.SugaredLogger, opts ...CoreOption) *Core {
	c := &Core{
		rooms:          NewRoomManager(),
		messages:       messageRepository,
		logger:         logger,
		persistTimeout: 5 * time.Second,
		events:         make(chan event, 256),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run dispatches events until ctx is cancelled, then closes every client.
func (c *Core) Run(ctx context.Context) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			for _, cl := range c.rooms.RemoveAll() {
				close(cl.send)
				c.metrics.ConnectionClosed()
			}
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

// Done is closed once Run has returned.
func (c *Core) Done() <-chan struct{} {
	return c.done
}

func (c *Core) handle(ev event) {
	switch ev.kind {
	case registerEvent:
		c.rooms.Register(ev.client)
		c.metrics.ConnectionOpened()

	case unregisterEvent:
		if c.rooms.RemoveClient(ev.client) {
			close(ev.client.send)
			c.metrics.ConnectionClosed()
		}

	case joinEvent:
		c.rooms.Join(ev.client, ev.membership)
		c.broadcast(ev.membership.RoomID, NewJoined(ev.membership.Username))

	case leaveEvent:
		c.rooms.Leave(ev.client, ev.membership.RoomID)
		c.broadcast(ev.membership.RoomID, NewLeft(ev.membership.Username))

	case publishEvent:
		c.broadcast(ev.roomID, ev.envelope)

	case notifyEvent:
		if !c.rooms.IsRegistered(ev.client) {
			return
		}
		select {
		case ev.client.send <- ev.envelope:
		default:
			c.metrics.EventDropped()
		}
	}
}

func (c *Core) broadcast(roomID string, msg *Envelope) {
	delivered, dropped := c.rooms.Broadcast(roomID, msg)
	c.metrics.EventBroadcast(msg.Event)
	if dropped > 0 {
		for i := 0; i < dropped; i++ {
			c.metrics.EventDropped()
		}
		c.logger.Warnw("client buffers full, dropped event", "room", roomID, "event", msg.Event, "dropped", dropped, "delivered", delivered)
	}
}

func (c *Core) submit(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Core) Register(cl *Client) {
	c.submit(event{kind: registerEvent, client: cl})
}

// Unregister removes the client from every room without announcing it.
func (c *Core) Unregister(cl *Client) {
	c.submit(event{kind: unregisterEvent, client: cl})
}

func (c *Core) Join(ctx context.Context, cl *Client, p RoomPayload) {
	if p.Room == "" {
		c.logger.Debugw("ignoring join without room", "client", cl.ID)
		return
	}
	if !c.roomActive(ctx, cl, p.Room) {
		return
	}

	c.submit(event{
		kind:       joinEvent,
		client:     cl,
		membership: domain.NewMembership(cl.ID, p.Username, p.Room),
	})
}

func (c *Core) Leave(ctx context.Context, cl *Client, p RoomPayload) {
	if p.Room == "" {
		c.logger.Debugw("ignoring leave without room", "client", cl.ID)
		return
	}

	c.submit(event{
		kind:       leaveEvent,
		client:     cl,
		membership: domain.NewMembership(cl.ID, p.Username, p.Room),
	})
}

// SendMessage broadcasts the resolved variant to the room and then persists
// text messages. A failed write is logged; the broadcast has already gone out.
func (c *Core) SendMessage(ctx context.Context, cl *Client, p SendMessagePayload) {
	if p.Room == "" {
		c.logger.Debugw("ignoring message without room", "client", cl.ID)
		return
	}
	if !c.roomActive(ctx, cl, p.Room) {
		return
	}

	variant := Classify(p)
	c.submit(event{
		kind:     publishEvent,
		roomID:   p.Room,
		envelope: NewReceiveMessage(variant, p),
	})

	if !variant.Persisted() {
		return
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.persistTimeout)
	defer cancel()

	c.persist(persistCtx, cl, p)
}

// persist stores a text message for an active room. When the room is torn
// down between the check and the write, the row is removed again.
func (c *Core) persist(ctx context.Context, cl *Client, p SendMessagePayload) {
	if !c.isActive(ctx, p.Room) {
		c.logger.Debugw("not persisting message for inactive room", "room", p.Room, "client", cl.ID)
		return
	}

	if err := c.messages.Append(ctx, p.Room, truncateSender(p.Username), p.Msg); err != nil {
		c.logger.Errorw("failed to persist message", "room", p.Room, "client", cl.ID, "error", err)
		return
	}

	if !c.isActive(ctx, p.Room) {
		if err := c.messages.DeleteAll(ctx, p.Room); err != nil {
			c.logger.Errorw("failed to remove message for torn down room", "room", p.Room, "error", err)
		}
	}
}

func (c *Core) isActive(ctx context.Context, roomID string) bool {
	if c.guard == nil {
		return true
	}
	_, err := c.guard.Get(ctx, roomID)
	if err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
		c.logger.Warnw("room lookup failed", "room", roomID, "error", err)
	}
	return err == nil
}

// truncateSender fits a display name into the stored sender column.
func truncateSender(name string) string {
	if utf8.RuneCountInString(name) <= domain.MaxSenderLength {
		return name
	}
	return string([]rune(name)[:domain.MaxSenderLength])
}

func (c *Core) roomActive(ctx context.Context, cl *Client, roomID string) bool {
	if !c.strict || c.guard == nil {
		return true
	}

	if _, err := c.guard.Get(ctx, roomID); err != nil {
		c.logger.Infow("rejecting event for inactive room", "room", roomID, "client", cl.ID, "error", err)
		c.submit(event{kind: notifyEvent, client: cl, envelope: NewError(SessionExpiredMessage)})
		return false
	}
	return true
}
