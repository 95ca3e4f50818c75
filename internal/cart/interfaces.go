package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/pkg/db/models"
)

// CartRepository captures persistence for cart lines.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	Create(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	FindByID(ctx context.Context, userID string, id uuid.UUID) (*models.CartItem, error)
	ListByUser(ctx context.Context, userID string) ([]models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID string, id uuid.UUID, quantity int) (int64, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) (int64, error)
}
