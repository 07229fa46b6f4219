package service

import "arenta/marketplace/internal/model"

type UserService interface {
	GetUserByID(id uint) (*model.User, error)
	GetProfile(id uint) (model.UserProfile, error)
	GetProfileByUsername(username string) (model.UserProfile, error)
}

type ChatService interface {
	CreateChat(firstUserID, secondUserID uint) (*model.Chat, error)
	GetChatID(firstUserID, secondUserID uint) (uint, error)
	GetChat(userID, chatID uint) (*model.Chat, error)
	GetChatsForUser(userID uint) ([]model.Chat, error)
	SendMessage(chatID, senderID uint, content string) (*model.Message, error)
	GetMessages(chatID uint) ([]model.Message, error)
	ClearChat(chatID uint) error
	DeleteChatsForUser(userID uint) error
}
