package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/internal/cart"
	product "github.com/ecomarket/marketplace-backend/internal/products"
	"github.com/ecomarket/marketplace-backend/pkg/db"
	"github.com/ecomarket/marketplace-backend/pkg/db/models"
	"github.com/ecomarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ecomarket/marketplace-backend/pkg/errors"
	"github.com/ecomarket/marketplace-backend/pkg/logger"
	"github.com/ecomarket/marketplace-backend/pkg/metrics"
	"github.com/ecomarket/marketplace-backend/pkg/outbox"
	"github.com/ecomarket/marketplace-backend/pkg/outbox/payloads"
)

type carbonLedger interface {
	AddCarbonSaved(ctx context.Context, tx *gorm.DB, id string, amount decimal.Decimal) error
}

// Placement turns a subset of the buyer's cart into an order.
type Placement interface {
	PlaceOrder(ctx context.Context, buyerID string, input PlaceOrderInput) (uuid.UUID, error)
}

// PlacementParams wires the checkout collaborators.
type PlacementParams struct {
	Tx       db.TxRunner
	Orders   Repository
	Cart     cart.CartRepository
	Products *product.Repository
	Users    carbonLedger
	Outbox   outboxPublisher
	Metrics  *metrics.MarketplaceMetrics
	Logger   *logger.Logger
}

type placement struct {
	tx       db.TxRunner
	orders   Repository
	cart     cart.CartRepository
	products *product.Repository
	users    carbonLedger
	outbox   outboxPublisher
	metrics  *metrics.MarketplaceMetrics
	logg     *logger.Logger
}

// NewPlacement builds the checkout workflow.
func NewPlacement(p PlacementParams) (Placement, error) {
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Cart == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if p.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if p.Users == nil {
		return nil, fmt.Errorf("carbon ledger required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &placement{
		tx:       p.Tx,
		orders:   p.Orders,
		cart:     p.Cart,
		products: p.Products,
		users:    p.Users,
		outbox:   p.Outbox,
		metrics:  p.Metrics,
		logg:     p.Logger,
	}, nil
}

// PlaceOrder re-reads the buyer's cart, keeps only the requested lines and
// totals them from stored prices. Order creation, the carbon counter, cart
// cleanup, product retirement and the outbox row commit together.
func (s *placement) PlaceOrder(ctx context.Context, buyerID string, input PlaceOrderInput) (uuid.UUID, error) {
	buyerID = strings.TrimSpace(buyerID)
	if buyerID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer id required")
	}
	address := strings.TrimSpace(input.ShippingAddress)
	if address == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required").
			WithDetails(map[string]any{"field": "shippingAddress"})
	}

	items, err := s.cart.ListByUser(ctx, buyerID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	selected := selectItems(items, input.CartItemIDs)
	if len(selected) == 0 {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "no cart items selected").
			WithDetails(map[string]any{"field": "cartItemIds"})
	}

	order, err := buildOrder(buyerID, address, normalizeIntent(input.PaymentIntentID), selected)
	if err != nil {
		return uuid.Nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.orders.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := s.users.AddCarbonSaved(ctx, tx, buyerID, order.TotalCarbonSaved); err != nil {
			return err
		}

		cartRepo := s.cart.WithTx(tx)
		for _, item := range selected {
			// A line already removed by a concurrent checkout is not an error.
			if _, err := cartRepo.Delete(ctx, buyerID, item.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart item")
			}
		}

		productIDs, sellerIDs := orderParties(order)
		if err := s.products.WithTx(tx).MarkUnavailable(ctx, productIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark products unavailable")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: buyerID, Role: string(enums.UserRoleBuyer)},
			Data: payloads.OrderPlacedEvent{
				OrderID:          order.ID,
				BuyerID:          buyerID,
				TotalAmount:      order.TotalAmount.StringFixed(2),
				TotalCarbonSaved: order.TotalCarbonSaved.StringFixed(2),
				ProductIDs:       productIDs,
				SellerIDs:        sellerIDs,
				PaymentIntentID:  order.PaymentIntentID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order placed event")
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.metrics.OrderPlaced(order.TotalAmount, order.TotalCarbonSaved)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":   order.ID.String(),
			"item_count": len(order.Items),
			"total":      order.TotalAmount.StringFixed(2),
			"carbon_kg":  order.TotalCarbonSaved.StringFixed(2),
		})
		s.logg.Info(logCtx, "order placed")
	}
	return order.ID, nil
}

func selectItems(items []models.CartItem, ids []uuid.UUID) []models.CartItem {
	if len(ids) == 0 {
		return nil
	}
	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	selected := make([]models.CartItem, 0, len(ids))
	for _, item := range items {
		if _, ok := wanted[item.ID]; ok {
			selected = append(selected, item)
		}
	}
	return selected
}

func buildOrder(buyerID, address string, paymentIntentID *string, items []models.CartItem) (*models.Order, error) {
	order := &models.Order{
		ID:               uuid.New(),
		BuyerID:          buyerID,
		Status:           enums.OrderStatusConfirmed,
		ShippingAddress:  address,
		PaymentIntentID:  paymentIntentID,
		TotalAmount:      decimal.Zero,
		TotalCarbonSaved: decimal.Zero,
		Items:            make([]models.OrderItem, 0, len(items)),
	}
	for _, item := range items {
		if item.Product == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart item product missing")
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		order.TotalAmount = order.TotalAmount.Add(item.Product.Price.Mul(qty))
		order.TotalCarbonSaved = order.TotalCarbonSaved.Add(item.Product.CarbonSaved.Mul(qty))
		order.Items = append(order.Items, models.OrderItem{
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			SellerID:    item.Product.SellerID,
			Price:       item.Product.Price,
			Quantity:    item.Quantity,
			CarbonSaved: item.Product.CarbonSaved,
		})
	}
	return order, nil
}

func orderParties(order *models.Order) ([]uuid.UUID, []string) {
	productSeen := make(map[uuid.UUID]struct{}, len(order.Items))
	sellerSeen := make(map[string]struct{}, len(order.Items))
	productIDs := make([]uuid.UUID, 0, len(order.Items))
	sellerIDs := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		if _, ok := productSeen[item.ProductID]; !ok {
			productSeen[item.ProductID] = struct{}{}
			productIDs = append(productIDs, item.ProductID)
		}
		if _, ok := sellerSeen[item.SellerID]; !ok {
			sellerSeen[item.SellerID] = struct{}{}
			sellerIDs = append(sellerIDs, item.SellerID)
		}
	}
	sort.Strings(sellerIDs)
	return productIDs, sellerIDs
}

func normalizeIntent(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
