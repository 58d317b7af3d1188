package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"updown-game-go/internal/database"
	"updown-game-go/internal/models"

	"go.uber.org/zap"
)

const defaultRoundsLimit = 50

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log   *zap.Logger
	store *database.Store
	now   func() time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, store *database.Store) *APIHandler {
	return &APIHandler{log: log, store: store, now: time.Now}
}

// RoundsHandler returns the most recent settled rounds. ?limit=0 returns all of them.
func (h *APIHandler) RoundsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultRoundsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	rounds, err := h.store.ListRounds(r.Context(), limit)
	if err != nil {
		h.log.Error("Failed to get rounds from database", zap.Error(err))
		http.Error(w, "Failed to get rounds", http.StatusInternalServerError)
		return
	}

	writeJSON(w, rounds)
}

// AccountHandler returns an account by external id; the local demo account by default.
func (h *APIHandler) AccountHandler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		id = models.LocalAccountID
	}

	account, err := h.store.Account(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("Failed to get account", zap.String("id", id), zap.Error(err))
		http.Error(w, "Failed to get account", http.StatusInternalServerError)
		return
	}

	writeJSON(w, account)
}

// StatsDetail holds calculated statistics for a given period.
type StatsDetail struct {
	RoundsPlayed int64   `json:"rounds_played"`
	Wins         int64   `json:"wins"`
	WinRate      float64 `json:"win_rate"`
	TotalProfit  float64 `json:"total_profit"`
}

func (s *StatsDetail) add(round models.RoundRecord) {
	s.RoundsPlayed++
	if round.Result == "WIN" {
		s.Wins++
	}
	s.TotalProfit += round.Profit
}

func (s *StatsDetail) finish() {
	if s.RoundsPlayed > 0 {
		s.WinRate = float64(s.Wins) / float64(s.RoundsPlayed)
	}
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// StatisticsHandler calculates and returns playing statistics.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.store.PlayedRounds(r.Context())
	if err != nil {
		h.log.Error("Failed to get rounds for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, computeStatistics(rounds, h.now()))
}

func computeStatistics(rounds []models.RoundRecord, now time.Time) StatisticsResponse {
	since24h := now.Add(-24 * time.Hour)

	var resp StatisticsResponse
	for _, round := range rounds {
		resp.AllTime.add(round)
		if time.UnixMilli(round.Timestamp).After(since24h) {
			resp.Since24h.add(round)
		}
	}
	resp.AllTime.finish()
	resp.Since24h.finish()
	return resp
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
