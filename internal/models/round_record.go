package models

import "gorm.io/gorm"

// RoundRecord is a settled round as seen by the player.
type RoundRecord struct {
	gorm.Model
	AccountID     uint    `gorm:"index" json:"account_id"`
	SessionID     string  `gorm:"index" json:"session_id"`
	Round         int64   `json:"round"`
	StartPrice    float64 `json:"start_price"`
	FinalPrice    float64 `json:"final_price"`
	Outcome       string  `json:"outcome"` // "UP" or "DOWN"
	PercentChange float64 `json:"percent_change"`
	Direction     string  `json:"direction,omitempty"`
	Result        string  `json:"result,omitempty"` // "WIN", "LOSS" or empty without a position
	Invested      float64 `json:"invested"`
	Payout        float64 `json:"payout"`
	Profit        float64 `json:"profit"`
	BalanceAfter  float64 `json:"balance_after"`
	Simulated     bool    `json:"simulated"`
	Timestamp     int64   `gorm:"index" json:"timestamp"`
}
