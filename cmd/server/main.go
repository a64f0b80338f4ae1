// Package main provides the Mastermind game server. It accepts line-protocol
// TCP clients, runs the lobby, and drives multiplayer guessing games.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/pegboard/mastermind/internal/config"
	"github.com/pegboard/mastermind/internal/frontend/handlers"
	"github.com/pegboard/mastermind/internal/frontend/tcp"
	"github.com/pegboard/mastermind/internal/game/lobby"
	"github.com/pegboard/mastermind/internal/game/score"
	"github.com/pegboard/mastermind/internal/observability"
	"github.com/pegboard/mastermind/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting mastermind server",
		zap.String("listen_addr", cfg.Listen.Addr()),
		zap.Int("code_length", cfg.Game.CodeLength),
		zap.String("colors", cfg.Game.Colors),
		zap.Int("max_guesses", cfg.Game.MaxGuesses),
	)

	// Build services
	evaluator, err := score.NewEvaluator(cfg.Game.Colors, cfg.Game.CodeLength)
	if err != nil {
		logger.Fatal("building evaluator", zap.Error(err))
	}
	generator := score.NewGenerator(cfg.Game.Colors, cfg.Game.CodeLength, score.NewCryptoSource())
	registry := lobby.NewRegistry(logger, evaluator, generator, cfg.Game.MaxGuesses)
	handler := handlers.NewGameHandler(registry, cfg.Game, logger)
	acceptor := tcp.NewAcceptor(cfg.Listen, handler, logger)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("tcp", &server.FuncService{
		StartFn: func() error {
			return acceptor.ListenAndServe()
		},
		StopFn: func() {
			acceptor.Stop()
		},
	})

	logger.Info("server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
