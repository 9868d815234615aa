package dto

type MenuFilters struct {
	MerchantID string
	IsActive   *bool
	Page       int
	PageSize   int
}
