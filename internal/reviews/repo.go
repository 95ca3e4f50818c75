package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/pkg/db/models"
)

// Repository persists product reviews.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a reviews repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListByProduct returns the product's reviews newest first with reviewers.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	var list []models.Review
	err := r.db.WithContext(ctx).
		Preload("Buyer").
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// Create inserts the review and reloads it with the reviewer attached.
func (r *Repository) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, err
	}
	var created models.Review
	if err := r.db.WithContext(ctx).Preload("Buyer").First(&created, "id = ?", review.ID).Error; err != nil {
		return nil, err
	}
	return &created, nil
}
