package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/pkg/db/models"
	"github.com/ecomarket/marketplace-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func withItems(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Product").
		Preload("Items.Product.Seller")
}

// CreateOrder inserts the order and its items in one statement batch.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	var list []models.Order
	err := withItems(r.db.WithContext(ctx)).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) FindForBuyer(ctx context.Context, buyerID string, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := withItems(r.db.WithContext(ctx)).
		Where("id = ? AND buyer_id = ?", id, buyerID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) ([]models.Order, error) {
	var list []models.Order
	err := r.db.WithContext(ctx).
		Where("payment_intent_id = ?", paymentIntentID).
		Order("created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateStatusByPaymentIntent sets status on every order sharing the intent.
func (r *repository) UpdateStatusByPaymentIntent(ctx context.Context, paymentIntentID string, status enums.OrderStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("payment_intent_id = ?", paymentIntentID).
		Update("status", status)
	return res.RowsAffected, res.Error
}
