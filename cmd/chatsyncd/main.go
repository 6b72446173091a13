package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"chatsync/internal/app"
	"chatsync/pkg/config"
	"chatsync/pkg/logger"
	"chatsync/pkg/shutdown"
)

// build metadata - set via ldflags during release
var version = "dev"

func main() {
	_ = godotenv.Load(".env")
	flags := config.ParseConfigFlags()

	eff, err := config.LoadEffective(flags)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithLevel(eff.Config.Logging.Level)

	a, err := app.New(eff, version)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		logger.Error("server_exit", "error", err)
		log.Fatalf("server exit: %v", err)
	}
	logger.Info("shutdown_complete")
}
