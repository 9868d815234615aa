package dto

type ProductFilters struct {
	MerchantID  string
	IsActive    *bool
	StrainType  string
	SearchQuery string // name, sku, description search
	Page        int
	PageSize    int
}
