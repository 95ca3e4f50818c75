// Package dbtest opens throwaway sqlite databases carrying the marketplace
// schema, for repository and service tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/pkg/db"
	"github.com/ecomarket/marketplace-backend/pkg/db/models"
	"github.com/ecomarket/marketplace-backend/pkg/enums"
)

// Open returns a client over a private in-memory database named after the test.
func Open(t *testing.T) *db.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=on", name, uuid.NewString()[:8])
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.ApplySQLiteSchema(context.Background(), conn))
	return db.NewFromGorm(conn)
}

// MustCreateUser inserts a user with the given id.
func MustCreateUser(t *testing.T, conn *gorm.DB, id string) *models.User {
	t.Helper()
	email := fmt.Sprintf("%s@example.com", id)
	first := "Test"
	user := &models.User{
		ID:          id,
		Email:       &email,
		FirstName:   &first,
		Role:        enums.UserRoleBoth,
		CarbonSaved: decimal.Zero,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

// ProductOption tweaks a product before insertion.
type ProductOption func(*models.Product)

func WithPrice(price string) ProductOption {
	return func(p *models.Product) { p.Price = decimal.RequireFromString(price) }
}

func WithCarbon(kg string) ProductOption {
	return func(p *models.Product) { p.CarbonSaved = decimal.RequireFromString(kg) }
}

func WithCategory(category string) ProductOption {
	return func(p *models.Product) { p.Category = category }
}

func WithTitle(title string) ProductOption {
	return func(p *models.Product) { p.Title = title }
}

func Featured() ProductOption {
	return func(p *models.Product) { p.IsFeatured = true }
}

func CreatedAt(at time.Time) ProductOption {
	return func(p *models.Product) { p.CreatedAt = at }
}

// MustCreateProduct inserts an available product owned by sellerID.
func MustCreateProduct(t *testing.T, conn *gorm.DB, sellerID string, opts ...ProductOption) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID:    sellerID,
		Title:       "Refurbished denim jacket",
		Description: "Gently worn, mended at the cuffs",
		Price:       decimal.RequireFromString("25.50"),
		Category:    "clothing",
		Condition:   enums.ProductConditionGood,
		CarbonSaved: decimal.RequireFromString("4.5"),
		EcoScore:    "A",
		Available:   true,
	}
	for _, opt := range opts {
		opt(product)
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

// MustCreateCartItem inserts a cart row.
func MustCreateCartItem(t *testing.T, conn *gorm.DB, userID string, productID uuid.UUID, qty int) *models.CartItem {
	t.Helper()
	item := &models.CartItem{UserID: userID, ProductID: productID, Quantity: qty}
	require.NoError(t, conn.Create(item).Error)
	return item
}
