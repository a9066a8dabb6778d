package ws

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/hilthontt/synchat/internal/domain"
	"go.uber.org/zap"
)

type recordedMessage struct {
	roomID, sender, text string
}

type recordingMessages struct {
	mu      sync.Mutex
	appends []recordedMessage
	err     error
}

func (r *recordingMessages) Append(_ context.Context, roomID, sender, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.appends = append(r.appends, recordedMessage{roomID, sender, text})
	return nil
}

func (r *recordingMessages) DeleteAll(_ context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.appends[:0]
	for _, m := range r.appends {
		if m.roomID != roomID {
			kept = append(kept, m)
		}
	}
	r.appends = kept
	return nil
}

func (r *recordingMessages) snapshot() []recordedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedMessage(nil), r.appends...)
}

type staticGuard map[string]bool

func (g staticGuard) Get(_ context.Context, id string) (*domain.Room, error) {
	if !g[id] {
		return nil, domain.ErrRoomExpired
	}
	return &domain.Room{ID: id}, nil
}

// closingGuard reports the room active for the first n lookups and gone after.
type closingGuard struct {
	mu     sync.Mutex
	calls  int
	active int
}

func (g *closingGuard) Get(_ context.Context, id string) (*domain.Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.calls > g.active {
		return nil, domain.ErrRoomNotFound
	}
	return &domain.Room{ID: id}, nil
}

func newTestClient(id string) *Client {
	return &Client{ID: id, send: make(chan *Envelope, 16)}
}

func startCore(t *testing.T, messages domain.MessageRepository, opts ...CoreOption) *Core {
	t.Helper()

	core := NewCore(messages, zap.NewNop().Sugar(), opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go core.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-core.Done()
	})
	return core
}

func receive(t *testing.T, cl *Client) *Envelope {
	t.Helper()

	select {
	case msg, ok := <-cl.send:
		if !ok {
			t.Fatalf("client %s: send channel closed", cl.ID)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("client %s: timed out waiting for event", cl.ID)
		return nil
	}
}

func expectNothing(t *testing.T, cl *Client) {
	t.Helper()

	select {
	case msg := <-cl.send:
		t.Fatalf("client %s: unexpected event %+v", cl.ID, msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func expectStatus(t *testing.T, cl *Client, want string) {
	t.Helper()

	msg := receive(t, cl)
	if msg.Event != StatusEvent {
		t.Fatalf("expected status event, got %q", msg.Event)
	}
	if got := msg.Data.(StatusPayload).Msg; got != want {
		t.Fatalf("expected status %q, got %q", want, got)
	}
}

func joinRoom(t *testing.T, core *Core, cl *Client, username, room string) {
	t.Helper()
	core.Register(cl)
	core.Join(context.Background(), cl, RoomPayload{Username: username, Room: room})
	expectStatus(t, cl, username+" has joined the room.")
}

func TestCore_JoinBroadcastsToRoomIncludingJoiner(t *testing.T) {
	core := startCore(t, &recordingMessages{})

	alice := newTestClient("alice-conn")
	bob := newTestClient("bob-conn")

	joinRoom(t, core, alice, "alice", "r1")
	core.Register(bob)
	core.Join(context.Background(), bob, RoomPayload{Username: "bob", Room: "r1"})

	expectStatus(t, alice, "bob has joined the room.")
	expectStatus(t, bob, "bob has joined the room.")
}

func TestCore_TextMessageBroadcastsAndPersists(t *testing.T) {
	messages := &recordingMessages{}
	core := startCore(t, messages)

	alice := newTestClient("a")
	bob := newTestClient("b")
	joinRoom(t, core, alice, "alice", "r1")
	joinRoom(t, core, bob, "bob", "r1")
	expectStatus(t, alice, "bob has joined the room.")

	core.SendMessage(context.Background(), alice, SendMessagePayload{Username: "alice", Room: "r1", Msg: "hi", Type: "text"})

	for _, cl := range []*Client{alice, bob} {
		msg := receive(t, cl)
		if msg.Event != ReceiveMessageEvent {
			t.Fatalf("expected receive_message, got %q", msg.Event)
		}
		data, ok := msg.Data.(TextMessagePayload)
		if !ok {
			t.Fatalf("expected text payload, got %T", msg.Data)
		}
		if data.Username != "alice" || data.Msg != "hi" || data.Type != KindText {
			t.Errorf("unexpected payload: %+v", data)
		}
	}

	got := messages.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(got))
	}
	if got[0] != (recordedMessage{"r1", "alice", "hi"}) {
		t.Errorf("unexpected persisted message: %+v", got[0])
	}
}

func TestCore_ImageMessageIsNotPersisted(t *testing.T) {
	messages := &recordingMessages{}
	core := startCore(t, messages)

	alice := newTestClient("a")
	joinRoom(t, core, alice, "alice", "r1")

	core.SendMessage(context.Background(), alice, SendMessagePayload{
		Username: "alice",
		Room:     "r1",
		Type:     "image",
		URL:      "/uploads/r1/1_cat.png",
	})

	msg := receive(t, alice)
	data, ok := msg.Data.(ImageMessagePayload)
	if !ok {
		t.Fatalf("expected image payload, got %T", msg.Data)
	}
	if data.URL != "/uploads/r1/1_cat.png" || data.Type != KindImage {
		t.Errorf("unexpected payload: %+v", data)
	}

	if n := len(messages.snapshot()); n != 0 {
		t.Errorf("expected no persisted messages, got %d", n)
	}
}

func TestCore_FallbackMessageIsBroadcastNotPersisted(t *testing.T) {
	messages := &recordingMessages{}
	core := startCore(t, messages)

	alice := newTestClient("a")
	joinRoom(t, core, alice, "alice", "r1")

	core.SendMessage(context.Background(), alice, SendMessagePayload{Username: "alice", Room: "r1", Type: "image"})

	msg := receive(t, alice)
	data, ok := msg.Data.(TextMessagePayload)
	if !ok {
		t.Fatalf("expected text-shaped fallback, got %T", msg.Data)
	}
	if data.Msg != "" || data.Type != KindText {
		t.Errorf("unexpected fallback payload: %+v", data)
	}
	if n := len(messages.snapshot()); n != 0 {
		t.Errorf("expected no persisted messages, got %d", n)
	}
}

func TestCore_PersistFailureStillBroadcasts(t *testing.T) {
	messages := &recordingMessages{err: errors.New("disk full")}
	core := startCore(t, messages)

	alice := newTestClient("a")
	joinRoom(t, core, alice, "alice", "r1")

	core.SendMessage(context.Background(), alice, SendMessagePayload{Username: "alice", Room: "r1", Msg: "hi"})

	if msg := receive(t, alice); msg.Event != ReceiveMessageEvent {
		t.Fatalf("expected receive_message, got %q", msg.Event)
	}
}

func TestCore_MessagesStayInTheirRoom(t *testing.T) {
	core := startCore(t, &recordingMessages{})

	alice := newTestClient("a")
	carol := newTestClient("c")
	joinRoom(t, core, alice, "alice", "r1")
	joinRoom(t, core, carol, "carol", "r2")

	core.SendMessage(context.Background(), alice, SendMessagePayload{Username: "alice", Room: "r1", Msg: "hi"})

	receive(t, alice)
	expectNothing(t, carol)
}

func TestCore_LeaveRemovesMembershipAndNotifiesRest(t *testing.T) {
	core := startCore(t, &recordingMessages{})

	alice := newTestClient("a")
	bob := newTestClient("b")
	joinRoom(t, core, alice, "alice", "r1")
	joinRoom(t, core, bob, "bob", "r1")
	expectStatus(t, alice, "bob has joined the room.")

	core.Leave(context.Background(), bob, RoomPayload{Username: "bob", Room: "r1"})
	expectStatus(t, alice, "bob has left the room.")
	expectNothing(t, bob)

	for _, m := range core.rooms.Members("r1") {
		if m.ConnectionID == bob.ID {
			t.Fatal("expected bob to have no membership after leave")
		}
	}

	core.SendMessage(context.Background(), alice, SendMessagePayload{Username: "alice", Room: "r1", Msg: "still here?"})
	receive(t, alice)
	expectNothing(t, bob)
}

func TestCore_JoinAnotherRoomKeepsEarlierMembership(t *testing.T) {
	core := startCore(t, &recordingMessages{})

	alice := newTestClient("a")
	joinRoom(t, core, alice, "alice", "r1")
	core.Join(context.Background(), alice, RoomPayload{Username: "alice", Room: "r2"})
	expectStatus(t, alice, "alice has joined the room.")

	rooms := core.rooms.RoomsOf(alice)
	if len(rooms) != 2 || rooms[0] != "r1" || rooms[1] != "r2" {
		t.Fatalf("expected membership in r1 and r2, got %v", rooms)
	}

	core.SendMessage(context.Background(), alice, SendMessagePayload{Username: "alice", Room: "r1", Msg: "old room"})
	if msg := receive(t, alice); msg.Event != ReceiveMessageEvent {
		t.Fatalf("expected receive_message from r1, got %q", msg.Event)
	}
}

func TestCore_DisconnectIsSilent(t *testing.T) {
	core := startCore(t, &recordingMessages{})

	alice := newTestClient("a")
	bob := newTestClient("b")
	joinRoom(t, core, alice, "alice", "r1")
	joinRoom(t, core, bob, "bob", "r1")
	expectStatus(t, alice, "bob has joined the room.")

	core.Unregister(bob)

	select {
	case _, ok := <-bob.send:
		if ok {
			t.Fatal("expected bob's channel to be closed without further events")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bob's channel to close")
	}

	expectNothing(t, alice)
	if members := core.rooms.Members("r1"); len(members) != 1 || members[0].ConnectionID != alice.ID {
		t.Fatalf("expected only alice in r1, got %+v", members)
	}
}

func TestCore_UnregisterTwiceIsSafe(t *testing.T) {
	core := startCore(t, &recordingMessages{})

	alice := newTestClient("a")
	joinRoom(t, core, alice, "alice", "r1")

	core.Unregister(alice)
	core.Unregister(alice)

	probe := newTestClient("probe")
	joinRoom(t, core, probe, "probe", "r1")
}

func TestCore_EmptyRoomIsIgnored(t *testing.T) {
	messages := &recordingMessages{}
	core := startCore(t, messages)

	alice := newTestClient("a")
	core.Register(alice)
	core.Join(context.Background(), alice, RoomPayload{Username: "alice"})
	core.SendMessage(context.Background(), alice, SendMessagePayload{Username: "alice", Msg: "hi"})

	expectNothing(t, alice)
	if n := len(messages.snapshot()); n != 0 {
		t.Errorf("expected no persisted messages, got %d", n)
	}
}

func TestCore_RoomGuardRejectsInactiveRoom(t *testing.T) {
	messages := &recordingMessages{}
	core := startCore(t, messages, WithRoomGuard(staticGuard{"live": true}), WithRequireActiveRoom())

	alice := newTestClient("a")
	core.Register(alice)
	core.Join(context.Background(), alice, RoomPayload{Username: "alice", Room: "gone"})

	msg := receive(t, alice)
	if msg.Event != ErrorEvent {
		t.Fatalf("expected error event, got %q", msg.Event)
	}
	if got := msg.Data.(StatusPayload).Msg; got != SessionExpiredMessage {
		t.Errorf("expected %q, got %q", SessionExpiredMessage, got)
	}
	if members := core.rooms.Members("gone"); len(members) != 0 {
		t.Errorf("expected no members in inactive room, got %+v", members)
	}

	core.SendMessage(context.Background(), alice, SendMessagePayload{Username: "alice", Room: "gone", Msg: "hi"})
	if msg := receive(t, alice); msg.Event != ErrorEvent {
		t.Fatalf("expected error event, got %q", msg.Event)
	}
	if n := len(messages.snapshot()); n != 0 {
		t.Errorf("expected no persisted messages, got %d", n)
	}

	core.Join(context.Background(), alice, RoomPayload{Username: "alice", Room: "live"})
	expectStatus(t, alice, "alice has joined the room.")
}

func TestCore_RunClosesClientsOnShutdown(t *testing.T) {
	core := NewCore(&recordingMessages{}, zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	go core.Run(ctx)

	alice := newTestClient("a")
	joinRoom(t, core, alice, "alice", "r1")

	cancel()
	<-core.Done()

	if _, ok := <-alice.send; ok {
		t.Fatal("expected send channel to be closed after shutdown")
	}

	// Submissions after shutdown must not block.
	core.Unregister(alice)
}

func TestCore_InactiveRoomBroadcastsWithoutPersisting(t *testing.T) {
	messages := &recordingMessages{}
	core := startCore(t, messages, WithRoomGuard(staticGuard{}))

	alice := newTestClient("a")
	joinRoom(t, core, alice, "alice", "deleted-room")

	core.SendMessage(context.Background(), alice, SendMessagePayload{Username: "alice", Room: "deleted-room", Msg: "anyone?"})

	if msg := receive(t, alice); msg.Event != ReceiveMessageEvent {
		t.Fatalf("expected receive_message, got %q", msg.Event)
	}
	if n := len(messages.snapshot()); n != 0 {
		t.Errorf("expected no persisted messages for an inactive room, got %d", n)
	}
}

func TestCore_TeardownDuringPersistRemovesMessage(t *testing.T) {
	messages := &recordingMessages{}
	guard := &closingGuard{active: 1}
	core := startCore(t, messages, WithRoomGuard(guard))

	alice := newTestClient("a")
	joinRoom(t, core, alice, "alice", "r1")
	_ = messages.Append(context.Background(), "r2", "bob", "elsewhere")

	core.SendMessage(context.Background(), alice, SendMessagePayload{Username: "alice", Room: "r1", Msg: "hi"})
	receive(t, alice)

	got := messages.snapshot()
	if len(got) != 1 || got[0].roomID != "r2" {
		t.Fatalf("expected only the unrelated message to remain, got %+v", got)
	}
}

func TestCore_LongSenderIsTruncated(t *testing.T) {
	messages := &recordingMessages{}
	core := startCore(t, messages)

	name := strings.Repeat("é", domain.MaxSenderLength+10)
	alice := newTestClient("a")
	joinRoom(t, core, alice, name, "r1")

	core.SendMessage(context.Background(), alice, SendMessagePayload{Username: name, Room: "r1", Msg: "hi"})

	msg := receive(t, alice)
	if got := msg.Data.(TextMessagePayload).Username; got != name {
		t.Errorf("expected broadcast to keep the full name, got %q", got)
	}

	got := messages.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(got))
	}
	if n := utf8.RuneCountInString(got[0].sender); n != domain.MaxSenderLength {
		t.Errorf("expected stored sender of %d runes, got %d", domain.MaxSenderLength, n)
	}
}
