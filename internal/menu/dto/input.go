package dto

type CreateMenuInput struct {
	MerchantID  string
	Name        string
	Description string
	SortOrder   int
}

type UpdateMenuInput struct {
	ID          string
	MerchantID  string
	Name        string
	Description string
	SortOrder   int
	IsActive    bool
}
