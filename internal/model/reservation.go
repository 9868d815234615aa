package model

import "time"

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
)

// Reservation is a time-limited hold on stock. Reserve decrements stock up
// front ("soft reserve via real decrement"); Cancel and the expiry sweeper
// put it back. Confirmed and cancelled/expired are terminal states.
type Reservation struct {
	ID           string            `db:"id" json:"id"`
	MerchantID   string            `db:"merchant_id" json:"merchant_id"`
	MenuID       string            `db:"menu_id" json:"menu_id"`
	Status       ReservationStatus `db:"status" json:"status"`
	LockToken    string            `db:"lock_token" json:"lock_token"`
	ExpiresAt    time.Time         `db:"expires_at" json:"expires_at"`
	CancelReason *string           `db:"cancel_reason" json:"cancel_reason"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
	Lines        []ReservationLine `db:"-" json:"lines"`
}

type ReservationLine struct {
	ID            string  `db:"id" json:"id"`
	ReservationID string  `db:"reservation_id" json:"reservation_id"`
	ProductID     string  `db:"product_id" json:"product_id"`
	Quantity      float64 `db:"quantity" json:"quantity"`
}

// Terminal reports whether the reservation can no longer transition.
func (r *Reservation) Terminal() bool {
	return r.Status != ReservationStatusPending
}

func (r *Reservation) ExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
