package dto

import "time"

type ReserveResult struct {
	ReservationID string    `json:"reservation_id"`
	LockToken     string    `json:"lock_token"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type ConfirmResult struct {
	OrderID string `json:"order_id"`
}
