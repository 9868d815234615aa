package dto

type CreateProductInput struct {
	MerchantID    string
	SKU           string
	Name          string
	Description   string
	StrainType    string
	ThcPercent    float64
	PricePerPound float64
	ImageURL      string
}

type UpdateProductInput struct {
	ID            string
	MerchantID    string
	SKU           string
	Name          string
	Description   string
	StrainType    string
	ThcPercent    float64
	PricePerPound float64
	ImageURL      string
	IsActive      bool
}
