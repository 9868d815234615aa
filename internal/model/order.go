package model

import (
	"encoding/json"
	"time"
)

type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is the durable record created by Confirm. InventoryReserved marks
// orders whose stock was already decremented at reservation time so the
// legacy sale listener does not decrement it again.
type Order struct {
	ID                string          `db:"id" json:"id"`
	ReservationID     string          `db:"reservation_id" json:"reservation_id"`
	MerchantID        string          `db:"merchant_id" json:"merchant_id"`
	MenuID            string          `db:"menu_id" json:"menu_id"`
	Status            OrderStatus     `db:"status" json:"status"`
	TotalAmount       float64         `db:"total_amount" json:"total_amount"`
	DeliveryInfo      json.RawMessage `db:"delivery_info" json:"delivery_info"`
	PaymentInfo       json.RawMessage `db:"payment_info" json:"payment_info"`
	InventoryReserved bool            `db:"inventory_reserved" json:"inventory_reserved"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
	Items             []OrderItem     `db:"-" json:"items"`
}

type OrderItem struct {
	ID        string  `db:"id" json:"id"`
	OrderID   string  `db:"order_id" json:"order_id"`
	ProductID string  `db:"product_id" json:"product_id"`
	Quantity  float64 `db:"quantity" json:"quantity"`
	UnitPrice float64 `db:"unit_price" json:"unit_price"`
}
