package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"updown-game-go/internal/config"
	"updown-game-go/internal/database"
	"updown-game-go/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger("ui", cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	apiHandler := NewAPIHandler(log, database.NewStore(db, log))

	addr := fmt.Sprintf(":%d", cfg.Server.UIPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           newRouter(apiHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("Starting web server", zap.String("address", addr))

	if err := server.ListenAndServe(); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
}

func newRouter(h *APIHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/rounds", h.RoundsHandler)
	r.Get("/api/statistics", h.StatisticsHandler)
	r.Get("/api/account", h.AccountHandler)

	return r
}
