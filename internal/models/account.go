package models

import "gorm.io/gorm"

// LocalAccountID is the external id used when no identity service is configured.
const LocalAccountID = "local"

// Account mirrors the player profile and keeps the demo balance between runs.
type Account struct {
	gorm.Model
	ExternalID string  `gorm:"uniqueIndex;not null" json:"external_id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	Verified   bool    `json:"verified"`
	Balance    float64 `gorm:"not null" json:"balance"`
}
