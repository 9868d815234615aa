package dto

import "encoding/json"

type ReserveLineInput struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
}

type ReserveInput struct {
	MerchantID string
	MenuID     string
	Lines      []ReserveLineInput
	TraceID    string
}

type ConfirmInput struct {
	MerchantID    string
	ReservationID string
	TotalAmount   float64
	DeliveryInfo  json.RawMessage
	PaymentInfo   json.RawMessage
	TraceID       string
}
