package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/pkg/db"
	"github.com/ecomarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ecomarket/marketplace-backend/pkg/errors"
	"github.com/ecomarket/marketplace-backend/pkg/outbox"
	"github.com/ecomarket/marketplace-backend/pkg/outbox/payloads"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes order history and payment-driven status updates.
type Service interface {
	ListForBuyer(ctx context.Context, buyerID string) ([]OrderDTO, error)
	GetForBuyer(ctx context.Context, buyerID string, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatusByPaymentIntent(ctx context.Context, paymentIntentID string, status enums.OrderStatus) (int64, error)
}

type service struct {
	repo   Repository
	tx     db.TxRunner
	outbox outboxPublisher
}

// NewService builds the order history service.
func NewService(repo Repository, tx db.TxRunner, publisher outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: publisher}, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID string) ([]OrderDTO, error) {
	list, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return FromModels(list), nil
}

// GetForBuyer hides orders of other buyers behind the same not-found answer.
func (s *service) GetForBuyer(ctx context.Context, buyerID string, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindForBuyer(ctx, buyerID, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	dto := FromModel(*order)
	return &dto, nil
}

// UpdateStatusByPaymentIntent relabels every order carrying the intent and
// queues one status event per order. Transitions are not validated.
func (s *service) UpdateStatusByPaymentIntent(ctx context.Context, paymentIntentID string, status enums.OrderStatus) (int64, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	if !status.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": string(status)})
	}

	var updated int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		matched, err := repo.FindByPaymentIntent(ctx, paymentIntentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find orders by payment intent")
		}
		if len(matched) == 0 {
			return nil
		}

		updated, err = repo.UpdateStatusByPaymentIntent(ctx, paymentIntentID, status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}

		for _, order := range matched {
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderStatusChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data: payloads.OrderStatusChangedEvent{
					OrderID:         order.ID,
					PaymentIntentID: paymentIntentID,
					Status:          status,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order status event")
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}
