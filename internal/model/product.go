package model

type Product struct {
	BaseModel
	MerchantID  string   `db:"merchant_id" json:"merchant_id"`
	SKU         string   `db:"sku" json:"sku"`
	Name        string   `db:"name" json:"name"`
	Description *string  `db:"description" json:"description"`
	StrainType  *string  `db:"strain_type" json:"strain_type"` // indica, sativa, hybrid
	ThcPercent  *float64 `db:"thc_percent" json:"thc_percent"`
	// PricePerPound is the wholesale list price; order items snapshot it
	// as unit_price at confirmation time.
	PricePerPound float64 `db:"price_per_pound" json:"price_per_pound"`
	ImageURL      *string `db:"image_url" json:"image_url"`
	IsActive      bool    `db:"is_active" json:"is_active"`
}
