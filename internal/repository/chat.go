package repository

import (
	"time"

	"arenta/marketplace/internal/model"
	"arenta/marketplace/internal/pkg/apperr"

	"gorm.io/gorm"
)

type ChatRepository interface {
	Create(chat *model.Chat) error
	GetByID(chatID uint) (*model.Chat, error)
	GetChatID(firstUserID, secondUserID uint) (uint, error)
	GetChatsForUser(userID uint) ([]model.Chat, error)
	AddMessage(msg *model.Message) error
	GetMessages(chatID uint) ([]model.Message, error)
	ClearMessages(chatID uint) error
	DeleteChatsForUser(userID uint) error
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(chat *model.Chat) error {
	return apperr.FromDB(r.db.Create(chat).Error, "chat")
}

func (r *chatRepository) GetByID(chatID uint) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.First(&chat, chatID).Error; err != nil {
		return nil, apperr.FromDB(err, "chat")
	}
	return &chat, nil
}

// GetChatID resolves the single chat for an unordered user pair. The pair is
// stored normalized, but the lookup stays symmetric so callers do not need to
// know the storage order.
func (r *chatRepository) GetChatID(firstUserID, secondUserID uint) (uint, error) {
	var chatID uint
	err := r.db.Model(&model.Chat{}).
		Where("(first_user_id = ? AND second_user_id = ?) OR (first_user_id = ? AND second_user_id = ?)",
			firstUserID, secondUserID, secondUserID, firstUserID).
		Select("id").
		First(&chatID).Error
	if err != nil {
		return 0, apperr.FromDB(err, "chat")
	}
	return chatID, nil
}

func (r *chatRepository) GetChatsForUser(userID uint) ([]model.Chat, error) {
	var chats []model.Chat
	err := r.db.
		Where("first_user_id = ? OR second_user_id = ?", userID, userID).
		Find(&chats).Error
	if err != nil {
		return nil, apperr.FromDB(err, "chat")
	}
	return chats, nil
}

// AddMessage assigns the server timestamp and persists the message in one
// transaction. The commit order is the ordering authority for the chat.
func (r *chatRepository) AddMessage(msg *model.Message) error {
	msg.Timestamp = time.Now().UTC()
	return apperr.FromDB(r.db.Create(msg).Error, "message")
}

func (r *chatRepository) GetMessages(chatID uint) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.
		Preload("Sender").
		Where("chat_id = ?", chatID).
		Order("timestamp ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, apperr.FromDB(err, "message")
	}
	return messages, nil
}

// ClearMessages wipes a chat's history. The chat row survives; deleting
// nothing is not an error.
func (r *chatRepository) ClearMessages(chatID uint) error {
	err := r.db.Unscoped().
		Where("chat_id = ?", chatID).
		Delete(&model.Message{}).Error
	return apperr.FromDB(err, "message")
}

// DeleteChatsForUser removes every chat the user participates in, messages
// included (FK cascade). Called when an account is permanently removed.
func (r *chatRepository) DeleteChatsForUser(userID uint) error {
	err := r.db.Unscoped().
		Where("first_user_id = ? OR second_user_id = ?", userID, userID).
		Delete(&model.Chat{}).Error
	return apperr.FromDB(err, "chat")
}
