package cart

import (
	"time"

	"github.com/google/uuid"

	product "github.com/ecomarket/marketplace-backend/internal/products"
	"github.com/ecomarket/marketplace-backend/pkg/db/models"
)

// CartItemDTO is a cart line with its product.
type CartItemDTO struct {
	ID        uuid.UUID           `json:"id"`
	UserID    string              `json:"userId"`
	ProductID uuid.UUID           `json:"productId"`
	Quantity  int                 `json:"quantity"`
	CreatedAt time.Time           `json:"createdAt"`
	Product   *product.ProductDTO `json:"product,omitempty"`
}

func FromModel(item models.CartItem) CartItemDTO {
	dto := CartItemDTO{
		ID:        item.ID,
		UserID:    item.UserID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		CreatedAt: item.CreatedAt,
	}
	if item.Product != nil {
		p := product.FromModel(*item.Product)
		dto.Product = &p
	}
	return dto
}

func FromModels(items []models.CartItem) []CartItemDTO {
	out := make([]CartItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, FromModel(item))
	}
	return out
}
