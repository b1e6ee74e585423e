package models

import (
	"time"
)

// StockEpsilon is the threshold below which ingredient stock is treated as
// exactly zero. Kept at 0.001 for compatibility with existing inventory data.
const StockEpsilon = 0.001

// Restaurant is owned by exactly one user with the restaurant role.
type Restaurant struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	OwnerID         uint       `gorm:"uniqueIndex;not null" json:"owner"`
	Owner           User       `gorm:"foreignKey:OwnerID" json:"-"`
	Name            string     `gorm:"not null" json:"name"`
	Description     string     `json:"description"`
	Address         string     `json:"address"`
	PhoneNumber     string     `json:"phone_number"`
	LogoURL         string     `json:"logo_url"`
	OpeningTime     string     `json:"opening_time"`
	ClosingTime     string     `json:"closing_time"`
	IsActive        bool       `gorm:"default:true" json:"is_active"`
	IsApproved      *bool      `json:"is_approved"` // nil = pending review
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Ingredient is the shared stock every order placement competes over.
// Invariant: Quantity is never negative, and IsAvailable is false whenever
// Quantity is at or below StockEpsilon. Quantity only mutates through the
// conditional decrement in the order placement engine or through restaurant
// inventory management.
type Ingredient struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	RestaurantID uint    `gorm:"index;not null" json:"restaurant"`
	Name         string  `gorm:"not null" json:"name"`
	Description  string  `json:"description"`
	Quantity     float64 `gorm:"not null" json:"quantity"`
	Unit         string  `json:"unit"` // e.g. kg, g, pieces
	PricePerUnit float64 `json:"price_per_unit"`
	IsAvailable  bool    `gorm:"default:true" json:"is_available"`
}
