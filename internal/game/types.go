package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Phase is one stage of the round clock.
type Phase string

const (
	PhaseBetting Phase = "BETTING"
	PhaseTrading Phase = "TRADING"
	PhaseResult  Phase = "RESULT"
)

// Direction is the side of a bet, and the way the market moved over a round.
type Direction string

const (
	Up   Direction = "UP"
	Down Direction = "DOWN"
)

// ParseDirection accepts "up"/"down" in any case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Result is the outcome of a settled position.
type Result string

const (
	Win  Result = "WIN"
	Loss Result = "LOSS"
)

// PricePoint is one sample of the simulated price.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// RoundResult is one entry of the player's round history.
type RoundResult struct {
	Result    Result    `json:"result"`
	Direction Direction `json:"direction"`
}

// MarketResult records how the market moved over one round.
type MarketResult struct {
	Outcome       Direction       `json:"outcome"`
	PercentChange decimal.Decimal `json:"percent_change"`
}

// RoundSummary is shown during the result phase.
type RoundSummary struct {
	Result        Result          `json:"result"`
	ProfitLoss    decimal.Decimal `json:"profit_loss"`
	PercentChange decimal.Decimal `json:"percent_change"`
}

// Snapshot is a read-only copy of everything a presentation layer may observe.
type Snapshot struct {
	Round            int64           `json:"round"`
	Phase            Phase           `json:"phase"`
	SecondsRemaining int             `json:"seconds_remaining"`
	CurrentPrice     float64         `json:"current_price"`
	StartPrice       float64         `json:"start_price"`
	StartTime        time.Time       `json:"start_time"`
	Simulated        bool            `json:"simulated"`
	Balance          decimal.Decimal `json:"balance"`
	Position         *Position       `json:"position"`
	Series           []PricePoint    `json:"series"`
	RoundHistory     []RoundResult   `json:"round_history"`
	MarketHistory    []MarketResult  `json:"market_history"`
	SimulatedBets    []SimulatedBet  `json:"simulated_bets"`
	LastRound        *RoundSummary   `json:"last_round"`
}
