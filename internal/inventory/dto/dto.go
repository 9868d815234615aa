package dto

import "time"

type InventoryFilters struct {
	MerchantID string
	ProductID  string
	LowStock   bool // If true, filter by quantity <= reorder_point
	Page       int
	PageSize   int
}

type MovementFilters struct {
	MerchantID   string
	ProductID    string
	MovementType string
	StartDate    *time.Time
	EndDate      *time.Time
	Page         int
	PageSize     int
}
