package model

// Menu is a storefront context reservations are made against. A merchant
// publishes one or more menus; Reserve rejects holds against inactive menus.
type Menu struct {
	BaseModel
	MerchantID  string  `db:"merchant_id" json:"merchant_id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description"`
	SortOrder   int     `db:"sort_order" json:"sort_order"`
	IsActive    bool    `db:"is_active" json:"is_active"`
}
