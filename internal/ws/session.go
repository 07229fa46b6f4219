package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"arenta/marketplace/internal/model"
	"arenta/marketplace/internal/pkg/apperr"
)

// MessageStore persists inbound messages. service.ChatService satisfies it.
type MessageStore interface {
	SendMessage(chatID, senderID uint, content string) (*model.Message, error)
}

// Presence tracks which users are online per chat. The redis cache repository
// satisfies it; nil disables presence tracking.
type Presence interface {
	AddUserToChat(ctx context.Context, chatID, userID uint) error
	RemoveUserFromChat(ctx context.Context, chatID, userID uint) (int64, error)
	GetChatUsers(ctx context.Context, chatID uint) ([]uint, error)
}

// InMessage is the only inbound frame a client may send.
type InMessage struct {
	Content string `json:"content"`
}

// OutMessage is the wire shape of a persisted, broadcast message.
type OutMessage struct {
	ID        uint              `json:"id"`
	ChatID    uint              `json:"chat_id"`
	Sender    model.UserProfile `json:"sender"`
	Content   string            `json:"content"`
	Timestamp string            `json:"timestamp"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// Session is the lifecycle of one authenticated connection to one chat:
// register, then receive → persist → broadcast until disconnect. The sender's
// identity was resolved exactly once, before the session was constructed;
// a failed handshake never reaches the registry.
type Session struct {
	registry *Registry
	store    MessageStore
	presence Presence
	chatID   uint
	sender   model.UserProfile
	conn     *Conn
}

func NewSession(registry *Registry, store MessageStore, presence Presence, chatID uint, sender model.UserProfile, transport Transport) *Session {
	return &Session{
		registry: registry,
		store:    store,
		presence: presence,
		chatID:   chatID,
		sender:   sender,
		conn:     NewConn(sender.ID, transport),
	}
}

// Run drives the session until the transport disconnects. Unregistration is
// deferred: it happens no matter where the loop exits.
func (s *Session) Run() {
	s.registry.Register(s.chatID, s.conn)
	if s.presence != nil {
		if err := s.presence.AddUserToChat(context.Background(), s.chatID, s.sender.ID); err != nil {
			log.Printf("ws: presence add failed for user %d in chat %d: %v", s.sender.ID, s.chatID, err)
		}
	}

	defer func() {
		s.registry.Unregister(s.chatID, s.conn)
		if s.presence != nil {
			if _, err := s.presence.RemoveUserFromChat(context.Background(), s.chatID, s.sender.ID); err != nil {
				log.Printf("ws: presence remove failed for user %d in chat %d: %v", s.sender.ID, s.chatID, err)
			}
		}
		s.conn.transport.Close()
	}()

	for {
		_, data, err := s.conn.transport.ReadMessage()
		if err != nil {
			// Transport disconnect, the only way out of the receive loop.
			return
		}

		var in InMessage
		if err := json.Unmarshal(data, &in); err != nil || strings.TrimSpace(in.Content) == "" {
			// Malformed payloads are rejected per message, not fatal.
			s.writeError("message content is required")
			continue
		}

		msg, err := s.store.SendMessage(s.chatID, s.sender.ID, in.Content)
		if err != nil {
			if errors.Is(err, apperr.ErrValidation) {
				s.writeError(err.Error())
				continue
			}
			// Chat deleted concurrently, or storage failed. Retrying without
			// context would break ordering guarantees, so the session ends.
			log.Printf("ws: persisting message for chat %d failed: %v", s.chatID, err)
			return
		}

		// Broadcast completes before the next frame is read, which gives
		// per-sender ordering. The sender's own connections get the echo.
		s.registry.Broadcast(s.chatID, OutMessage{
			ID:        msg.ID,
			ChatID:    msg.ChatID,
			Sender:    s.sender,
			Content:   msg.Content,
			Timestamp: msg.WireTimestamp(),
		})
	}
}

// writeError goes through Conn.WriteJSON so an error frame never interleaves
// with a broadcast delivery on the same connection.
func (s *Session) writeError(msg string) {
	if err := s.conn.WriteJSON(errorFrame{Error: msg}); err != nil {
		log.Printf("ws: failed to send error frame: %v", err)
	}
}
