package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/usersync/internal/server"
	"github.com/dmitrijs2005/usersync/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}
}
