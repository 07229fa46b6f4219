// @title Arenta Marketplace API
// @version 0.1
// @description Rental marketplace backend: chats and real-time messaging.

// @host localhost:8080
// @BasePath /
// @query.collection.format multi
// @schemes http

package main

import (
	"log"

	"arenta/marketplace/internal/app"
	"arenta/marketplace/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	app.Run(cfg)
}
