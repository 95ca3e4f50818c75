package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/pkg/db/models"
)

// Repository persists listings.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a product repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func withDetail(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Seller").
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Reviews.Buyer")
}

// List returns available products newest first.
func (r *Repository) List(ctx context.Context, input ListProductsInput) ([]models.Product, error) {
	page := input.Pagination.Normalize()
	q := r.db.WithContext(ctx).Model(&models.Product{}).Where("available = ?", true)

	if category := strings.TrimSpace(input.Filters.Category); category != "" {
		q = q.Where("category = ?", category)
	}
	if search := strings.TrimSpace(input.Filters.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}
	if input.Filters.Featured != nil {
		q = q.Where("is_featured = ?", *input.Filters.Featured)
	}

	var list []models.Product
	err := withDetail(q).
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&list).Error
	return list, err
}

// FindByID loads a product with seller and reviews.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := withDetail(r.db.WithContext(ctx)).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Exists reports whether a product row is present regardless of availability.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// IncrementViews bumps the view counter with one UPDATE.
func (r *Repository) IncrementViews(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	return res.RowsAffected, res.Error
}

// Create inserts a product.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// ListBySeller returns every listing owned by sellerID, newest first.
func (r *Repository) ListBySeller(ctx context.Context, sellerID string) ([]models.Product, error) {
	var list []models.Product
	err := withDetail(r.db.WithContext(ctx)).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// Update applies column updates to a product.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates).Error
}

// MarkUnavailable retires the listed products.
func (r *Repository) MarkUnavailable(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id IN ?", ids).
		Update("available", false).Error
}
