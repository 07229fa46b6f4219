package app

import (
	"context"
	"log"

	"arenta/marketplace/internal/config"
	"arenta/marketplace/internal/handler"
	"arenta/marketplace/internal/pkg/auth"
	"arenta/marketplace/internal/repository"
	"arenta/marketplace/internal/service"
	"arenta/marketplace/internal/ws"

	"github.com/redis/go-redis/v9"
)

func Run(cfg *config.Config) {
	db, err := repository.NewDB(cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}

	// Redis is optional: without it the backend runs without the recent-message
	// cache and presence tracking.
	var cacheRepo repository.ChatCacheRepository
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("redis unavailable, chat cache disabled: %v", err)
		} else {
			cacheRepo = repository.NewChatCacheRepository(rdb)
		}
	}

	userRepo := repository.NewUserRepository(db)
	userService := service.NewUserService(userRepo)
	userHandler := handler.NewUserHandler(userService)

	chatRepo := repository.NewChatRepository(db)
	chatService := service.NewChatService(chatRepo, cacheRepo)

	registry := ws.NewRegistry()
	tokens := auth.NewTokenService()

	var presence ws.Presence
	if cacheRepo != nil {
		presence = cacheRepo
	}
	chatHandler := handler.NewChatHandler(chatService, userService, tokens, registry, presence)

	server := NewServer(userHandler, chatHandler)
	server.Run(cfg.ServerPort)
}
