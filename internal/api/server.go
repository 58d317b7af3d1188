package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"updown-game-go/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Game is the engine surface the HTTP adapter drives.
type Game interface {
	PlaceBet(amount decimal.Decimal, dir game.Direction) bool
	StartSimulation(amount decimal.Decimal, dir game.Direction) bool
	CashOut() bool
	Snapshot() game.Snapshot
}

// Server exposes a game session over HTTP and WebSocket.
type Server struct {
	game   Game
	hub    *Hub
	logger *zap.Logger
	addr   string
	stream time.Duration
}

// NewServer creates a server listening on port.
func NewServer(g Game, hub *Hub, logger *zap.Logger, port int, stream time.Duration) *Server {
	return &Server{
		game:   g,
		hub:    hub,
		logger: logger.Named("api-server"),
		addr:   fmt.Sprintf(":%d", port),
		stream: stream,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(corsMiddleware)

	r.Get("/health", s.healthHandler)
	r.Get("/ws", s.hub.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.stateHandler)
		r.Post("/bets", s.betHandler)
		r.Post("/cashout", s.cashOutHandler)
		r.Post("/simulate", s.simulateHandler)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()
	go s.hub.Stream(streamCtx, s.game, s.stream)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server", zap.String("address", s.addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Stopping API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}

// ── Handlers ─────────────────────────────────────────

type betRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"`
}

type betResponse struct {
	Accepted bool          `json:"accepted"`
	State    game.Snapshot `json:"state"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	json200(w, map[string]string{"status": "ok"})
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	json200(w, s.game.Snapshot())
}

func (s *Server) betHandler(w http.ResponseWriter, r *http.Request) {
	amount, dir, ok := decodeBet(w, r)
	if !ok {
		return
	}
	s.reply(w, s.game.PlaceBet(amount, dir))
}

func (s *Server) simulateHandler(w http.ResponseWriter, r *http.Request) {
	amount, dir, ok := decodeBet(w, r)
	if !ok {
		return
	}
	s.reply(w, s.game.StartSimulation(amount, dir))
}

func (s *Server) cashOutHandler(w http.ResponseWriter, r *http.Request) {
	s.reply(w, s.game.CashOut())
}

// reply answers 200 when the command was applied and 409 when the game ignored it.
func (s *Server) reply(w http.ResponseWriter, accepted bool) {
	resp := betResponse{Accepted: accepted, State: s.game.Snapshot()}
	if !accepted {
		jsonWrite(w, http.StatusConflict, resp)
		return
	}
	json200(w, resp)
}

func decodeBet(w http.ResponseWriter, r *http.Request) (decimal.Decimal, game.Direction, bool) {
	var req betRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid json")
		return decimal.Zero, "", false
	}
	dir, err := game.ParseDirection(req.Direction)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return decimal.Zero, "", false
	}
	if !req.Amount.IsPositive() {
		jsonErr(w, http.StatusBadRequest, "amount must be positive")
		return decimal.Zero, "", false
	}
	return req.Amount, dir, true
}

// ── Helpers ──────────────────────────────────────────

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("Request served",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func json200(w http.ResponseWriter, data any) {
	jsonWrite(w, http.StatusOK, data)
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonWrite(w, code, map[string]string{"error": msg})
}

func jsonWrite(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
