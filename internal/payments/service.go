package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/ecomarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ecomarket/marketplace-backend/pkg/errors"
	"github.com/ecomarket/marketplace-backend/pkg/logger"
	"github.com/ecomarket/marketplace-backend/pkg/metrics"
	stripeclient "github.com/ecomarket/marketplace-backend/pkg/stripe"
)

const (
	metadataUserID      = "user_id"
	metadataCartItemIDs = "cart_item_ids"
)

var hundred = decimal.NewFromInt(100)

// IntentCreator is the processor surface needed to open a payment intent.
type IntentCreator interface {
	CreatePaymentIntent(ctx context.Context, req stripeclient.IntentRequest) (*stripeclient.Intent, error)
}

type statusUpdater interface {
	UpdateStatusByPaymentIntent(ctx context.Context, paymentIntentID string, status enums.OrderStatus) (int64, error)
}

// CreateIntentInput is the buyer's request to start a payment.
type CreateIntentInput struct {
	Amount      decimal.Decimal
	CartItemIDs []uuid.UUID
}

// IntentDTO is returned to the client to confirm the payment.
type IntentDTO struct {
	ClientSecret string `json:"clientSecret"`
}

// Service bridges checkout to the payment processor.
type Service interface {
	CreateIntent(ctx context.Context, userID string, input CreateIntentInput) (*IntentDTO, error)
	HandleWebhookEvent(ctx context.Context, event *stripe.Event) error
}

// ServiceParams wires the payments service. Processor may be nil when no
// secret key is configured.
type ServiceParams struct {
	Processor IntentCreator
	Orders    statusUpdater
	Metrics   *metrics.MarketplaceMetrics
	Logger    *logger.Logger
}

type service struct {
	processor IntentCreator
	orders    statusUpdater
	metrics   *metrics.MarketplaceMetrics
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order status updater required")
	}
	return &service{
		processor: params.Processor,
		orders:    params.Orders,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// CreateIntent trusts the client-supplied amount; totals are re-derived
// independently at order placement.
func (s *service) CreateIntent(ctx context.Context, userID string, input CreateIntentInput) (*IntentDTO, error) {
	if !input.Amount.IsPositive() {
		s.metrics.PaymentIntent("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero").
			WithDetails(map[string]any{"field": "amount"})
	}
	if s.processor == nil {
		s.metrics.PaymentIntent("unconfigured")
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment processor not configured")
	}

	cents := ToMinorUnits(input.Amount)
	if cents <= 0 {
		s.metrics.PaymentIntent("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be at least one cent").
			WithDetails(map[string]any{"field": "amount"})
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, stripeclient.IntentRequest{
		AmountCents: cents,
		Metadata: map[string]string{
			metadataUserID:      userID,
			metadataCartItemIDs: joinIDs(input.CartItemIDs),
		},
	})
	if err != nil {
		if errors.Is(err, stripeclient.ErrNotConfigured) {
			s.metrics.PaymentIntent("unconfigured")
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment processor not configured")
		}
		s.metrics.PaymentIntent("failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment intent")
	}

	s.metrics.PaymentIntent("created")
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_intent_id": intent.ID,
			"amount_cents":      cents,
		})
		s.logg.Info(logCtx, "payment intent created")
	}
	return &IntentDTO{ClientSecret: intent.ClientSecret}, nil
}

// HandleWebhookEvent maps payment intent outcomes onto order status. Event
// types it does not track are acknowledged and ignored.
func (s *service) HandleWebhookEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	status, tracked := statusForEvent(event.Type)
	if !tracked {
		s.metrics.WebhookEvent(string(event.Type), "ignored")
		return nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		s.metrics.WebhookEvent(string(event.Type), "invalid")
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		s.metrics.WebhookEvent(string(event.Type), "invalid")
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}

	updated, err := s.orders.UpdateStatusByPaymentIntent(ctx, intent.ID, status)
	if err != nil {
		s.metrics.WebhookEvent(string(event.Type), "failed")
		return err
	}

	outcome := "applied"
	if updated == 0 {
		outcome = "unmatched"
	}
	s.metrics.WebhookEvent(string(event.Type), outcome)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id":          event.ID,
			"event_type":        string(event.Type),
			"payment_intent_id": intent.ID,
			"orders_updated":    updated,
		})
		s.logg.Info(logCtx, "payment event applied")
	}
	return nil
}

func statusForEvent(eventType stripe.EventType) (enums.OrderStatus, bool) {
	switch eventType {
	case stripe.EventTypePaymentIntentSucceeded:
		return enums.OrderStatusConfirmed, true
	case stripe.EventTypePaymentIntentPaymentFailed, stripe.EventTypePaymentIntentCanceled:
		return enums.OrderStatusCancelled, true
	default:
		return "", false
	}
}

// ToMinorUnits converts a currency amount to whole cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.String())
	}
	return strings.Join(parts, ",")
}
