package payloads

import (
	"github.com/google/uuid"

	"github.com/ecomarket/marketplace-backend/pkg/enums"
)

// OrderPlacedEvent is emitted once per successful checkout.
type OrderPlacedEvent struct {
	OrderID          uuid.UUID   `json:"orderId"`
	BuyerID          string      `json:"buyerId"`
	TotalAmount      string      `json:"totalAmount"`
	TotalCarbonSaved string      `json:"totalCarbonSaved"`
	ProductIDs       []uuid.UUID `json:"productIds"`
	SellerIDs        []string    `json:"sellerIds"`
	PaymentIntentID  *string     `json:"paymentIntentId,omitempty"`
}

// OrderStatusChangedEvent is emitted when a payment event moves order status.
type OrderStatusChangedEvent struct {
	OrderID         uuid.UUID         `json:"orderId"`
	PaymentIntentID string            `json:"paymentIntentId"`
	Status          enums.OrderStatus `json:"status"`
}
