package model

import "time"

// InventoryItem is the stock row the reservation protocol locks and mutates.
// Quantity is decimal pounds.
type InventoryItem struct {
	ID         string    `db:"id" json:"id"`
	MerchantID string    `db:"merchant_id" json:"merchant_id"`
	ProductID  string    `db:"product_id" json:"product_id"`
	Quantity   float64   `db:"quantity" json:"quantity"`
	// ReorderPoint drives the low-stock report; 0 disables it.
	ReorderPoint float64   `db:"reorder_point" json:"reorder_point"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type InventoryMovement struct {
	ID             string    `db:"id" json:"id"`
	MerchantID     string    `db:"merchant_id" json:"merchant_id"`
	ProductID      string    `db:"product_id" json:"product_id"`
	MovementType   string    `db:"movement_type" json:"movement_type"`
	QuantityChange float64   `db:"quantity_change" json:"quantity_change"`
	QuantityBefore float64   `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  float64   `db:"quantity_after" json:"quantity_after"`
	ReferenceType  *string   `db:"reference_type" json:"reference_type"`
	ReferenceID    *string   `db:"reference_id" json:"reference_id"`
	Notes          string    `db:"notes" json:"notes"`
	CreatedBy      *string   `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Movement reference types.
const (
	MovementRefReservation        = "reservation"
	MovementRefReservationRelease = "reservation_release"
	MovementRefSale               = "sale"
	MovementRefManualAdjustment   = "manual_adjustment"
)
