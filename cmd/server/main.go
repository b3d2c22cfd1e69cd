package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/typeduel/typing-duel-backend/internal/config"
	"github.com/typeduel/typing-duel-backend/internal/directory"
	"github.com/typeduel/typing-duel-backend/internal/game"
	"github.com/typeduel/typing-duel-backend/internal/httpapi"
)

func main() {
	cfg := config.Load()

	var log *zap.Logger
	var err error
	if cfg.Debug {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	opts := game.Options{
		PingInterval: cfg.PingInterval,
		PongWait:     cfg.PongWait,
		TurnTimeout:  cfg.TurnTimeout,
		Rematch:      cfg.Rematch,
	}
	d := directory.New(context.Background(), opts, log)

	handler := httpapi.SetupRoutes(d, log)

	log.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("rematch", cfg.Rematch))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
