package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	product "github.com/ecomarket/marketplace-backend/internal/products"
	"github.com/ecomarket/marketplace-backend/pkg/db/models"
	"github.com/ecomarket/marketplace-backend/pkg/enums"
)

// OrderDTO is an order as returned to its buyer.
type OrderDTO struct {
	ID               uuid.UUID         `json:"id"`
	BuyerID          string            `json:"buyerId"`
	TotalAmount      decimal.Decimal   `json:"totalAmount"`
	Status           enums.OrderStatus `json:"status"`
	ShippingAddress  string            `json:"shippingAddress"`
	PaymentIntentID  *string           `json:"paymentIntentId,omitempty"`
	TotalCarbonSaved decimal.Decimal   `json:"totalCarbonSaved"`
	CreatedAt        time.Time         `json:"createdAt"`
	Items            []OrderItemDTO    `json:"items"`
}

// OrderItemDTO carries the purchase-time snapshot of a line.
type OrderItemDTO struct {
	ID          uuid.UUID           `json:"id"`
	OrderID     uuid.UUID           `json:"orderId"`
	ProductID   uuid.UUID           `json:"productId"`
	SellerID    string              `json:"sellerId"`
	Price       decimal.Decimal     `json:"price"`
	Quantity    int                 `json:"quantity"`
	CarbonSaved decimal.Decimal     `json:"carbonSaved"`
	Product     *product.ProductDTO `json:"product,omitempty"`
}

// PlaceOrderInput is the buyer-supplied part of a checkout.
type PlaceOrderInput struct {
	CartItemIDs     []uuid.UUID
	ShippingAddress string
	PaymentIntentID *string
}

func FromModel(o models.Order) OrderDTO {
	dto := OrderDTO{
		ID:               o.ID,
		BuyerID:          o.BuyerID,
		TotalAmount:      o.TotalAmount,
		Status:           o.Status,
		ShippingAddress:  o.ShippingAddress,
		PaymentIntentID:  o.PaymentIntentID,
		TotalCarbonSaved: o.TotalCarbonSaved,
		CreatedAt:        o.CreatedAt,
		Items:            make([]OrderItemDTO, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		line := OrderItemDTO{
			ID:          item.ID,
			OrderID:     item.OrderID,
			ProductID:   item.ProductID,
			SellerID:    item.SellerID,
			Price:       item.Price,
			Quantity:    item.Quantity,
			CarbonSaved: item.CarbonSaved,
		}
		if item.Product != nil {
			p := product.FromModel(*item.Product)
			line.Product = &p
		}
		dto.Items = append(dto.Items, line)
	}
	return dto
}

func FromModels(list []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(list))
	for _, o := range list {
		out = append(out, FromModel(o))
	}
	return out
}
