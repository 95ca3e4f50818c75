package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/pkg/db/models"
)

// Repository exposes persistence operations for cart lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func withProduct(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Product").
		Preload("Product.Seller").
		Preload("Product.Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Product.Reviews.Buyer")
}

// Create inserts a new cart line.
func (r *Repository) Create(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// FindByID loads one of the user's lines with its product.
func (r *Repository) FindByID(ctx context.Context, userID string, id uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := withProduct(r.db.WithContext(ctx)).
		Where("id = ? AND user_id = ?", id, userID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByUser returns the user's lines, oldest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := withProduct(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// UpdateQuantity overwrites the quantity on a line owned by userID.
func (r *Repository) UpdateQuantity(ctx context.Context, userID string, id uuid.UUID, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		UpdateColumn("quantity", quantity)
	return res.RowsAffected, res.Error
}

// Delete removes a line owned by userID and reports rows removed.
func (r *Repository) Delete(ctx context.Context, userID string, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
