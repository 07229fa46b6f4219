package ws

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Transport is the bidirectional message connection a session runs over.
// *websocket.Conn satisfies it; tests use in-memory fakes.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// Conn is one registered client connection. Identity is an opaque uuid, not
// the user id: one user may hold several connections to the same chat
// (multiple tabs/devices) and every one of them receives the fan-out.
type Conn struct {
	ID        string
	UserID    uint
	writeMu   sync.Mutex
	transport Transport
}

func NewConn(userID uint, transport Transport) *Conn {
	return &Conn{
		ID:        uuid.NewString(),
		UserID:    userID,
		transport: transport,
	}
}

// WriteJSON delivers one frame to the client. Every write goes through here:
// the underlying websocket connection supports a single writer, and a
// broadcast from another session can race this session's own error frames.
func (c *Conn) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.transport.WriteJSON(v)
}

// Metrics counts registry activity.
type Metrics struct {
	Connections  atomic.Int64
	MessagesSent atomic.Int64
	SendErrors   atomic.Int64
}

// Registry maps chat ids to the live connections subscribed to them. It is an
// explicitly owned component injected into sessions, never a package global.
// Each chat's connection list is guarded by its own lock; the registry lock
// only protects the room map itself.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[uint]*room
	metrics Metrics
}

type room struct {
	mu     sync.Mutex
	conns  []*Conn // insertion order = broadcast order
	closed bool    // reaped from the map; do not reuse
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[uint]*room)}
}

func (reg *Registry) getRoom(chatID uint) *room {
	reg.mu.RLock()
	rm, ok := reg.rooms[chatID]
	reg.mu.RUnlock()
	if ok {
		return rm
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if rm, ok := reg.rooms[chatID]; ok {
		return rm
	}
	rm = &room{}
	reg.rooms[chatID] = rm
	return rm
}

// Register adds the connection to the chat's set, creating the set if absent.
// There is no per-chat cap: two human participants, any number of devices.
func (reg *Registry) Register(chatID uint, c *Conn) {
	for {
		rm := reg.getRoom(chatID)

		rm.mu.Lock()
		if rm.closed {
			// Lost a race with the reaper; the map no longer holds this room.
			rm.mu.Unlock()
			continue
		}
		rm.conns = append(rm.conns, c)
		rm.mu.Unlock()

		reg.metrics.Connections.Inc()
		return
	}
}

// Unregister removes the connection. Removing an unknown connection or chat
// is a no-op: disconnect races must not raise. A room left empty is reaped
// so abandoned chat ids do not pile up in the map.
func (reg *Registry) Unregister(chatID uint, c *Conn) {
	reg.mu.RLock()
	rm, ok := reg.rooms[chatID]
	reg.mu.RUnlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	for i, conn := range rm.conns {
		if conn.ID == c.ID {
			rm.conns = append(rm.conns[:i], rm.conns[i+1:]...)
			reg.metrics.Connections.Dec()
			break
		}
	}
	empty := len(rm.conns) == 0
	rm.mu.Unlock()

	if empty {
		reg.reapRoom(chatID, rm)
	}
}

// reapRoom deletes the room if it is still the mapped one and still empty.
// Marking it closed sends a concurrently registering connection back to
// getRoom for a fresh room instead of stranding it in the deleted one.
func (reg *Registry) reapRoom(chatID uint, rm *room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	cur, ok := reg.rooms[chatID]
	if !ok || cur != rm {
		return
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if len(rm.conns) == 0 {
		rm.closed = true
		delete(reg.rooms, chatID)
	}
}

// Broadcast delivers the payload to every connection registered for the chat,
// in registration order. The room lock is held for the whole fan-out, so a
// connection added concurrently either receives the message or cleanly does
// not — never a half-mutated iteration. A failed send is logged and skipped;
// it must not starve the remaining recipients.
func (reg *Registry) Broadcast(chatID uint, payload any) {
	reg.mu.RLock()
	rm, ok := reg.rooms[chatID]
	reg.mu.RUnlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	for _, conn := range rm.conns {
		if err := conn.WriteJSON(payload); err != nil {
			reg.metrics.SendErrors.Inc()
			log.Printf("ws: failed to send to connection %s in chat %d: %v", conn.ID, chatID, err)
			continue
		}
		reg.metrics.MessagesSent.Inc()
	}
}

// Count reports how many connections are registered for a chat.
func (reg *Registry) Count(chatID uint) int {
	reg.mu.RLock()
	rm, ok := reg.rooms[chatID]
	reg.mu.RUnlock()
	if !ok {
		return 0
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.conns)
}

// Stats returns a snapshot of the registry metrics.
func (reg *Registry) Stats() (connections, sent, errors int64) {
	return reg.metrics.Connections.Load(), reg.metrics.MessagesSent.Load(), reg.metrics.SendErrors.Load()
}
