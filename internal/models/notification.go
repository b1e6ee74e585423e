package models

import (
	"time"
)

// Notification types.
const (
	NotificationNewOrder          = "new_order"
	NotificationOrderAccepted     = "order_accepted"
	NotificationOrderRejected     = "order_rejected"
	NotificationOrderReady        = "order_ready"
	NotificationOrderDelivered    = "order_delivered"
	NotificationOrderCancelled    = "order_cancelled"
	NotificationOrderStatusUpdate = "order_status_update"
)

type Notification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RecipientID  uint      `gorm:"index;not null" json:"recipient"`
	SenderID     *uint     `json:"sender,omitempty"`
	RestaurantID *uint     `json:"restaurant,omitempty"`
	OrderID      *uint     `json:"order,omitempty"`
	Type         string    `gorm:"column:notification_type;not null" json:"notification_type"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	IsRead       bool      `gorm:"default:false" json:"is_read"`
	CreatedAt    time.Time `json:"created_at"`
}
