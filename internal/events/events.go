package events

import "time"

const EventTypeOrderCreated = "OrderCreated"

// OrderCreatedEvent is published to the orders topic when Confirm commits.
// The legacy sale listener consumes it; InventoryReserved tells the listener
// the checkout path already decremented stock for this order.
type OrderCreatedEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID                string             `json:"id"`
	MerchantID        string             `json:"merchant_id"`
	MenuID            string             `json:"menu_id"`
	ReservationID     string             `json:"reservation_id"`
	InventoryReserved bool               `json:"inventory_reserved"`
	Items             []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}
