package ws

import (
	"sync"

	"github.com/hilthontt/synchat/internal/domain"
)

type member struct {
	client     *Client
	membership domain.Membership
}

// RoomManager holds the broadcast groups. Mutations happen on the Core's
// dispatch goroutine; the lock lets other goroutines take snapshots.
type RoomManager struct {
	rooms   map[string]map[string]member // roomID -> clientID -> member
	clients map[string]map[string]bool   // clientID -> joined roomIDs
	conns   map[string]*Client           // clientID -> registered client
	mu      sync.RWMutex
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:   make(map[string]map[string]member),
		clients: make(map[string]map[string]bool),
		conns:   make(map[string]*Client),
	}
}

func (rm *RoomManager) Register(cl *Client) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.conns[cl.ID] = cl
	if rm.clients[cl.ID] == nil {
		rm.clients[cl.ID] = make(map[string]bool)
	}
}

func (rm *RoomManager) IsRegistered(cl *Client) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	_, ok := rm.conns[cl.ID]
	return ok
}

// Join adds the client to the room group. Joining again refreshes the username.
func (rm *RoomManager) Join(cl *Client, m domain.Membership) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	group, ok := rm.rooms[m.RoomID]
	if !ok {
		group = make(map[string]member)
		rm.rooms[m.RoomID] = group
	}
	group[cl.ID] = member{client: cl, membership: m}

	if rm.clients[cl.ID] == nil {
		rm.clients[cl.ID] = make(map[string]bool)
	}
	rm.clients[cl.ID][m.RoomID] = true
}

// Leave removes the client from one group and reports whether it was a member.
func (rm *RoomManager) Leave(cl *Client, roomID string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	return rm.leaveLocked(cl.ID, roomID)
}

func (rm *RoomManager) leaveLocked(clientID, roomID string) bool {
	group, ok := rm.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := group[clientID]; !ok {
		return false
	}

	delete(group, clientID)
	if len(group) == 0 {
		delete(rm.rooms, roomID)
	}
	delete(rm.clients[clientID], roomID)

	return true
}

// RemoveClient drops the client from every group and forgets it. It reports
// whether the client was registered.
func (rm *RoomManager) RemoveClient(cl *Client) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for roomID := range rm.clients[cl.ID] {
		rm.leaveLocked(cl.ID, roomID)
	}
	delete(rm.clients, cl.ID)

	if _, ok := rm.conns[cl.ID]; !ok {
		return false
	}
	delete(rm.conns, cl.ID)
	return true
}

// RemoveAll forgets every client and returns them.
func (rm *RoomManager) RemoveAll() []*Client {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	out := make([]*Client, 0, len(rm.conns))
	for _, cl := range rm.conns {
		out = append(out, cl)
	}

	rm.rooms = make(map[string]map[string]member)
	rm.clients = make(map[string]map[string]bool)
	rm.conns = make(map[string]*Client)

	return out
}

// Broadcast enqueues msg for every member of the room without blocking.
// Members whose buffer is full miss the message.
func (rm *RoomManager) Broadcast(roomID string, msg *Envelope) (delivered, dropped int) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	for _, m := range rm.rooms[roomID] {
		select {
		case m.client.send <- msg:
			delivered++
		default:
			dropped++
		}
	}
	return delivered, dropped
}
