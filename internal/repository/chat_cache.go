package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"arenta/marketplace/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	cachedMessagesMax = 1000
	messageCacheTTL   = 24 * time.Hour
	presenceTTL       = 30 * time.Minute
)

// ChatCacheRepository keeps a trimmed recent-message list and per-chat
// presence sets in redis. Everything here is best-effort: the database is
// the source of truth.
type ChatCacheRepository interface {
	SaveMessage(ctx context.Context, chatID uint, msg model.Message) error
	ClearMessages(ctx context.Context, chatID uint) error

	AddUserToChat(ctx context.Context, chatID, userID uint) error
	RemoveUserFromChat(ctx context.Context, chatID, userID uint) (int64, error)
	GetChatUsers(ctx context.Context, chatID uint) ([]uint, error)
}

type chatCacheRepository struct {
	rdb *redis.Client
}

func NewChatCacheRepository(rdb *redis.Client) ChatCacheRepository {
	return &chatCacheRepository{rdb: rdb}
}

func (r *chatCacheRepository) messageKey(chatID uint) string {
	return fmt.Sprintf("chat:%d:messages", chatID)
}

func (r *chatCacheRepository) presenceKey(chatID uint) string {
	return fmt.Sprintf("chat:%d:users_online", chatID)
}

func (r *chatCacheRepository) SaveMessage(ctx context.Context, chatID uint, msg model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := r.messageKey(chatID)
	if err := r.rdb.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to save message to redis: %w", err)
	}
	if err := r.rdb.LTrim(ctx, key, -cachedMessagesMax, -1).Err(); err != nil {
		return fmt.Errorf("failed to trim message list: %w", err)
	}
	if err := r.rdb.Expire(ctx, key, messageCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set TTL: %w", err)
	}

	return nil
}

func (r *chatCacheRepository) ClearMessages(ctx context.Context, chatID uint) error {
	if err := r.rdb.Del(ctx, r.messageKey(chatID)).Err(); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

func (r *chatCacheRepository) AddUserToChat(ctx context.Context, chatID, userID uint) error {
	key := r.presenceKey(chatID)
	if err := r.rdb.SAdd(ctx, key, userID).Err(); err != nil {
		return fmt.Errorf("failed to add user to chat: %w", err)
	}
	if err := r.rdb.Expire(ctx, key, presenceTTL).Err(); err != nil {
		return fmt.Errorf("failed to set TTL: %w", err)
	}
	return nil
}

// RemoveUserFromChat drops the user from the presence set and returns how
// many users remain online in the chat.
func (r *chatCacheRepository) RemoveUserFromChat(ctx context.Context, chatID, userID uint) (int64, error) {
	key := r.presenceKey(chatID)
	if err := r.rdb.SRem(ctx, key, userID).Err(); err != nil {
		return 0, fmt.Errorf("failed to remove user from chat: %w", err)
	}
	count, err := r.rdb.SCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get user count: %w", err)
	}
	return count, nil
}

func (r *chatCacheRepository) GetChatUsers(ctx context.Context, chatID uint) ([]uint, error) {
	members, err := r.rdb.SMembers(ctx, r.presenceKey(chatID)).Result()
	if err != nil {
		if err == redis.Nil {
			return []uint{}, nil
		}
		return nil, fmt.Errorf("failed to get chat users: %w", err)
	}

	users := make([]uint, 0, len(members))
	for _, member := range members {
		var userID uint
		if _, err := fmt.Sscanf(member, "%d", &userID); err == nil {
			users = append(users, userID)
		}
	}
	return users, nil
}
