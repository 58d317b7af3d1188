package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"updown-game-go/internal/api"
	"updown-game-go/internal/config"
	"updown-game-go/internal/database"
	"updown-game-go/internal/events"
	"updown-game-go/internal/game"
	"updown-game-go/internal/identity"
	"updown-game-go/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger("game", cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Setup context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	store := database.NewStore(db, log)
	log.Info("Database connection successful and schema migrated.")

	// Resolve the player, through the identity service when one is configured
	var client identity.ClientInterface
	if cfg.Identity.BaseURL != "" {
		client = identity.NewClient(&cfg.Identity, log)
	}
	account, err := resolveAccount(ctx, client, store, cfg.Game.InitialBalance, log)
	if err != nil {
		log.Fatal("Failed to resolve account", zap.Error(err))
	}

	seed := cfg.Game.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sessionID := uuid.NewString()
	log = log.With(zap.String("session_id", sessionID))

	session, err := game.NewSession(cfg.Game, log.Named("session"), rand.New(rand.NewSource(seed)),
		decimal.NewFromFloat(account.Balance), time.Now())
	if err != nil {
		log.Fatal("Failed to create session", zap.Error(err))
	}
	log.Info("Session ready",
		zap.String("account", account.ExternalID),
		zap.Float64("balance", account.Balance),
		zap.Int64("seed", seed))

	listeners := []game.Listener{
		game.LogListener(log),
		database.NewRecorder(store, log, account.ID, sessionID),
	}
	if cfg.Events.Enabled {
		publisher, err := events.Connect(cfg.Events, sessionID, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warn("Failed to drain NATS connection", zap.Error(err))
			}
		}()
		listeners = append(listeners, publisher)
	}

	engine := game.NewEngine(log, session, cfg.Game.TickInterval(), listeners...)
	server := api.NewServer(engine, api.NewHub(log), log, cfg.Server.Port,
		time.Duration(cfg.Server.StreamIntervalMs)*time.Millisecond)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		engine.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return server.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Game stopped with error", zap.Error(err))
	}
	log.Info("Game has been shut down.")
}
