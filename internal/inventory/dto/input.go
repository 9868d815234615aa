package dto

type AdjustInventoryInput struct {
	MerchantID     string
	ProductID      string
	QuantityChange float64
	Reason         string
	ReferenceID    string
	ReferenceType  string // 'manual_adjustment', 'sale', 'return'
	UserID         string
}
