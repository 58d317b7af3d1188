package game

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Settlement is the resolution of one round.
type Settlement struct {
	StartPrice float64      `json:"start_price"`
	FinalPrice float64      `json:"final_price"`
	Market     MarketResult `json:"market"`

	HasPosition bool            `json:"has_position"`
	Result      Result          `json:"result,omitempty"`
	Direction   Direction       `json:"direction,omitempty"`
	Invested    decimal.Decimal `json:"invested"`
	Value       decimal.Decimal `json:"value"`
	Profit      decimal.Decimal `json:"profit"`
}

// MarketOutcome classifies a round's move. No movement counts as Up.
func MarketOutcome(startPrice, finalPrice float64) MarketResult {
	start := decimal.NewFromFloat(startPrice)
	diff := decimal.NewFromFloat(finalPrice).Sub(start)

	percent := decimal.Zero
	if start.IsPositive() {
		percent = diff.Div(start).Abs().Mul(hundred)
	}
	outcome := Up
	if diff.IsNegative() {
		outcome = Down
	}
	return MarketResult{Outcome: outcome, PercentChange: percent}
}

// Settle resolves pos against the round's start and final price. pos may be nil.
// The position gains or loses its stake times the market's percentage move; value never goes below zero.
func Settle(pos *Position, startPrice, finalPrice float64) Settlement {
	s := Settlement{
		StartPrice: startPrice,
		FinalPrice: finalPrice,
		Market:     MarketOutcome(startPrice, finalPrice),
	}
	if pos == nil {
		return s
	}

	s.HasPosition = true
	s.Direction = pos.Direction
	s.Invested = pos.Invested

	// Valued from the stake: at the end of trading the mark already equals invested ± change,
	// so adding the change to CurrentValue would count the move twice.
	change := pos.Invested.Mul(s.Market.PercentChange).Div(hundred)
	if pos.Direction == s.Market.Outcome {
		s.Result = Win
		s.Value = pos.Invested.Add(change)
		s.Profit = change
	} else {
		s.Result = Loss
		s.Value = decimal.Max(decimal.Zero, pos.Invested.Sub(change))
		s.Profit = change.Neg()
	}
	return s
}

// Summary is the result-phase display of a settlement with a position.
func (s Settlement) Summary() *RoundSummary {
	if !s.HasPosition {
		return nil
	}
	return &RoundSummary{Result: s.Result, ProfitLoss: s.Profit, PercentChange: s.Market.PercentChange}
}
