package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecomarket/marketplace-backend/internal/reviews"
	"github.com/ecomarket/marketplace-backend/internal/users"
	"github.com/ecomarket/marketplace-backend/pkg/db/models"
	"github.com/ecomarket/marketplace-backend/pkg/enums"
)

// ProductDTO is the listing payload returned to clients.
type ProductDTO struct {
	ID            uuid.UUID              `json:"id"`
	SellerID      string                 `json:"sellerId"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Price         decimal.Decimal        `json:"price"`
	OriginalPrice *decimal.Decimal       `json:"originalPrice"`
	Category      string                 `json:"category"`
	Condition     enums.ProductCondition `json:"condition"`
	CarbonSaved   decimal.Decimal        `json:"carbonSaved"`
	EcoScore      string                 `json:"ecoScore"`
	ImageURL      *string                `json:"imageUrl"`
	IsFeatured    bool                   `json:"isFeatured"`
	Available     bool                   `json:"available"`
	Views         int                    `json:"views"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
	Seller        *users.SummaryDTO      `json:"seller,omitempty"`
	Reviews       []reviews.ReviewDTO    `json:"reviews"`
}

// CreateProductInput holds the validated payload to create a listing.
type CreateProductInput struct {
	Title         string
	Description   string
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal
	Category      string
	Condition     enums.ProductCondition
	CarbonSaved   decimal.Decimal
	EcoScore      string
	ImageURL      *string
	IsFeatured    bool
}

// UpdateProductInput holds optional mutation values for a listing.
type UpdateProductInput struct {
	Title         *string
	Description   *string
	Price         *decimal.Decimal
	OriginalPrice *decimal.Decimal
	Category      *string
	Condition     *enums.ProductCondition
	CarbonSaved   *decimal.Decimal
	EcoScore      *string
	ImageURL      *string
	IsFeatured    *bool
	Available     *bool
}

func FromModel(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		Condition:   p.Condition,
		CarbonSaved: p.CarbonSaved,
		EcoScore:    p.EcoScore,
		ImageURL:    p.ImageURL,
		IsFeatured:  p.IsFeatured,
		Available:   p.Available,
		Views:       p.Views,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Seller:      users.SummaryFromModel(p.Seller),
		Reviews:     reviews.FromModels(p.Reviews),
	}
	if p.OriginalPrice.Valid {
		original := p.OriginalPrice.Decimal
		dto.OriginalPrice = &original
	}
	return dto
}

func FromModels(list []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(list))
	for _, p := range list {
		out = append(out, FromModel(p))
	}
	return out
}
