package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Order statuses. The intended lifecycle is pending -> confirmed ->
// preparing -> ready -> delivered, with cancelled reachable from every
// non-terminal state. The engine does not enforce that graph: restaurant
// staff may override any status with any other.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// Payment methods and statuses.
const (
	PaymentMethodCreditCard = "credit_card"
	PaymentMethodDebitCard  = "debit_card"
	PaymentMethodCash       = "cash"
	PaymentMethodWallet     = "wallet"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

var orderStatusLabels = map[string]string{
	StatusPending:   "Pending",
	StatusConfirmed: "Confirmed",
	StatusPreparing: "Preparing",
	StatusReady:     "Ready for Pickup",
	StatusDelivered: "Delivered",
	StatusCancelled: "Cancelled",
}

// ValidOrderStatus reports whether s is one of the known order statuses.
func ValidOrderStatus(s string) bool {
	_, ok := orderStatusLabels[s]
	return ok
}

// OrderStatusLabel returns the human-readable label for a status value.
// Unknown values are returned as-is.
func OrderStatusLabel(s string) string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return s
}

type Order struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	UserID          uint        `gorm:"index;not null" json:"user"`
	User            User        `gorm:"foreignKey:UserID" json:"-"`
	RestaurantID    uint        `gorm:"index;not null" json:"restaurant"`
	Restaurant      Restaurant  `gorm:"foreignKey:RestaurantID" json:"-"`
	Status          string      `gorm:"default:'pending'" json:"status"`
	TotalPrice      float64     `json:"total_price"`
	DeliveryAddress string      `json:"delivery_address"`
	DeliveryNotes   string      `json:"delivery_notes"`
	Items           []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	Payment         *Payment    `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// OrderItem references exactly one of Meal or CustomMeal. Price is the
// per-unit price snapshotted at order time and never recomputed.
type OrderItem struct {
	ID                  uint        `gorm:"primaryKey" json:"id"`
	OrderID             uint        `gorm:"index;not null" json:"order"`
	MealID              *uint       `json:"meal"`
	Meal                *Meal       `gorm:"foreignKey:MealID" json:"meal_details,omitempty"`
	CustomMealID        *uint       `json:"custom_meal"`
	CustomMeal          *CustomMeal `gorm:"foreignKey:CustomMealID" json:"custom_meal_details,omitempty"`
	Quantity            int         `gorm:"default:1" json:"quantity"`
	Price               float64     `json:"price"`
	SpecialInstructions string      `json:"special_instructions"`
}

var (
	ErrItemRefBoth     = errors.New("an order item cannot reference both a meal and a custom meal")
	ErrItemRefNone     = errors.New("an order item must reference either a meal or a custom meal")
	ErrItemBadQuantity = errors.New("order item quantity must be positive")
)

// BeforeSave enforces the meal-XOR-custom-meal invariant at the persistence
// boundary as well, so no code path can write an ambiguous line.
func (i *OrderItem) BeforeSave(tx *gorm.DB) error {
	if i.MealID != nil && i.CustomMealID != nil {
		return ErrItemRefBoth
	}
	if i.MealID == nil && i.CustomMealID == nil {
		return ErrItemRefNone
	}
	if i.Quantity <= 0 {
		return ErrItemBadQuantity
	}
	return nil
}

type Payment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderID       uint      `gorm:"uniqueIndex;not null" json:"order"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	TransactionID string    `json:"transaction_id"`
	Status        string    `gorm:"default:'pending'" json:"status"`
	CreatedAt     time.Time `json:"payment_date"`
}
