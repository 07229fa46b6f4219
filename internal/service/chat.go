package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"arenta/marketplace/internal/model"
	"arenta/marketplace/internal/pkg/apperr"
	"arenta/marketplace/internal/repository"
)

type chatService struct {
	chatRepo  repository.ChatRepository
	cacheRepo repository.ChatCacheRepository // optional, best-effort
}

// NewChatService creates the chat service. cacheRepo may be nil; the cache
// is an accelerator, never the source of truth.
func NewChatService(chatRepo repository.ChatRepository, cacheRepo repository.ChatCacheRepository) ChatService {
	return &chatService{chatRepo: chatRepo, cacheRepo: cacheRepo}
}

// CreateChat creates the single chat for an unordered user pair. The pair is
// stored normalized so the database unique index rejects duplicates
// regardless of argument order.
func (s *chatService) CreateChat(firstUserID, secondUserID uint) (*model.Chat, error) {
	if firstUserID == 0 || secondUserID == 0 {
		return nil, apperr.Validation("user ids cannot be zero")
	}
	if firstUserID == secondUserID {
		return nil, apperr.Validation("cannot create a chat with yourself")
	}

	first, second := model.NormalizePair(firstUserID, secondUserID)
	chat := &model.Chat{FirstUserID: first, SecondUserID: second}

	if err := s.chatRepo.Create(chat); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			if id, lookupErr := s.chatRepo.GetChatID(first, second); lookupErr == nil {
				return nil, apperr.AlreadyExists("chat %d already exists for this pair", id)
			}
		}
		return nil, err
	}

	return chat, nil
}

func (s *chatService) GetChatID(firstUserID, secondUserID uint) (uint, error) {
	if firstUserID == 0 || secondUserID == 0 {
		return 0, apperr.Validation("user ids cannot be zero")
	}
	return s.chatRepo.GetChatID(firstUserID, secondUserID)
}

// GetChat retrieves a chat only for its participants.
func (s *chatService) GetChat(userID, chatID uint) (*model.Chat, error) {
	chat, err := s.chatRepo.GetByID(chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, apperr.NotFound("chat %d", chatID)
	}
	return chat, nil
}

func (s *chatService) GetChatsForUser(userID uint) ([]model.Chat, error) {
	if userID == 0 {
		return nil, apperr.Validation("userID cannot be zero")
	}
	return s.chatRepo.GetChatsForUser(userID)
}

// SendMessage persists a message with a server-assigned timestamp. The sender
// must be a participant of the chat; this is checked at append time, not only
// at handshake.
func (s *chatService) SendMessage(chatID, senderID uint, content string) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validation("message content cannot be empty")
	}

	chat, err := s.chatRepo.GetByID(chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(senderID) {
		return nil, apperr.Validation("user %d is not a participant of chat %d", senderID, chatID)
	}

	msg := &model.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.chatRepo.AddMessage(msg); err != nil {
		return nil, err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SaveMessage(context.Background(), chatID, *msg); err != nil {
			log.Printf("chat cache: failed to save message %d: %v", msg.ID, err)
		}
	}

	return msg, nil
}

func (s *chatService) GetMessages(chatID uint) ([]model.Message, error) {
	if chatID == 0 {
		return nil, apperr.Validation("chatID cannot be zero")
	}
	return s.chatRepo.GetMessages(chatID)
}

// DeleteChatsForUser removes every chat the user participates in, messages
// included. This backs account removal; a live session of a deleted chat
// terminates on its next persist attempt.
func (s *chatService) DeleteChatsForUser(userID uint) error {
	if userID == 0 {
		return apperr.Validation("userID cannot be zero")
	}
	return s.chatRepo.DeleteChatsForUser(userID)
}

// ClearChat wipes all messages of a chat. Idempotent; the chat itself stays.
func (s *chatService) ClearChat(chatID uint) error {
	if _, err := s.chatRepo.GetByID(chatID); err != nil {
		return err
	}

	if err := s.chatRepo.ClearMessages(chatID); err != nil {
		return err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.ClearMessages(context.Background(), chatID); err != nil {
			log.Printf("chat cache: failed to clear chat %d: %v", chatID, err)
		}
	}

	return nil
}
