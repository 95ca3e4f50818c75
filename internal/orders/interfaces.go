package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/pkg/db/models"
	"github.com/ecomarket/marketplace-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error)
	FindForBuyer(ctx context.Context, buyerID string, id uuid.UUID) (*models.Order, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) ([]models.Order, error)
	UpdateStatusByPaymentIntent(ctx context.Context, paymentIntentID string, status enums.OrderStatus) (int64, error)
}
