package product

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/pkg/db/dbtest"
	"github.com/ecomarket/marketplace-backend/pkg/db/models"
	"github.com/ecomarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ecomarket/marketplace-backend/pkg/errors"
	"github.com/ecomarket/marketplace-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t).DB()
	dbtest.MustCreateUser(t, conn, "seller")
	dbtest.MustCreateUser(t, conn, "other-seller")
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func TestListProductsFiltersAndOrders(t *testing.T) {
	svc, conn := newTestService(t)
	now := time.Now().UTC()

	jacket := dbtest.MustCreateProduct(t, conn, "seller", dbtest.WithTitle("Wool Jacket"), dbtest.CreatedAt(now.Add(-2*time.Hour)))
	lamp := dbtest.MustCreateProduct(t, conn, "seller", dbtest.WithTitle("Brass lamp"), dbtest.WithCategory("home"), dbtest.Featured(), dbtest.CreatedAt(now.Add(-time.Hour)))
	sold := dbtest.MustCreateProduct(t, conn, "seller", dbtest.WithTitle("Sold jacket"), dbtest.CreatedAt(now))
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", sold.ID).Update("available", false).Error)

	all, err := svc.ListProducts(context.Background(), ListProductsInput{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, lamp.ID, all[0].ID)
	require.Equal(t, jacket.ID, all[1].ID)
	require.Equal(t, "seller", all[0].Seller.ID)
	require.NotNil(t, all[0].Reviews)

	byCategory, err := svc.ListProducts(context.Background(), ListProductsInput{Filters: ProductListFilters{Category: "home"}})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	require.Equal(t, lamp.ID, byCategory[0].ID)

	bySearch, err := svc.ListProducts(context.Background(), ListProductsInput{Filters: ProductListFilters{Search: "JACKET"}})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	require.Equal(t, jacket.ID, bySearch[0].ID)

	featured := true
	onlyFeatured, err := svc.ListProducts(context.Background(), ListProductsInput{Filters: ProductListFilters{Featured: &featured}})
	require.NoError(t, err)
	require.Len(t, onlyFeatured, 1)
	require.Equal(t, lamp.ID, onlyFeatured[0].ID)

	paged, err := svc.ListProducts(context.Background(), ListProductsInput{Pagination: pagination.Params{Limit: 1, Offset: 1}})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	require.Equal(t, jacket.ID, paged[0].ID)
}

func TestGetProductIncrementsViews(t *testing.T) {
	svc, conn := newTestService(t)
	product := dbtest.MustCreateProduct(t, conn, "seller")

	first, err := svc.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	require.Equal(t, 1, first.Views)

	second, err := svc.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	require.Equal(t, 2, second.Views)
}

func TestGetProductConcurrentViews(t *testing.T) {
	svc, conn := newTestService(t)
	product := dbtest.MustCreateProduct(t, conn, "seller")

	const fetches = 8
	var wg sync.WaitGroup
	for i := 0; i < fetches; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.GetProduct(context.Background(), product.ID)
		}()
	}
	wg.Wait()

	var stored models.Product
	require.NoError(t, conn.First(&stored, "id = ?", product.ID).Error)
	require.Equal(t, fetches, stored.Views)
}

func TestGetProductNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetProduct(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateProduct(t *testing.T) {
	svc, _ := newTestService(t)
	original := decimal.RequireFromString("80")

	created, err := svc.CreateProduct(context.Background(), "seller", CreateProductInput{
		Title:         " Oak chair ",
		Description:   "Solid oak",
		Price:         decimal.RequireFromString("45.00"),
		OriginalPrice: &original,
		Category:      "furniture",
		Condition:     enums.ProductConditionLikeNew,
		CarbonSaved:   decimal.RequireFromString("12.5"),
		EcoScore:      "b",
	})
	require.NoError(t, err)
	require.Equal(t, "Oak chair", created.Title)
	require.Equal(t, "seller", created.SellerID)
	require.True(t, created.Available)
	require.Zero(t, created.Views)
	require.Equal(t, "B", created.EcoScore)
	require.True(t, created.OriginalPrice.Equal(original))
	require.True(t, created.Price.Equal(decimal.RequireFromString("45")))
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	negative := decimal.RequireFromString("-1")

	cases := map[string]CreateProductInput{
		"zero price":        {Price: decimal.Zero, Condition: enums.ProductConditionGood},
		"negative original": {Price: decimal.NewFromInt(5), OriginalPrice: &negative, Condition: enums.ProductConditionGood},
		"negative carbon":   {Price: decimal.NewFromInt(5), CarbonSaved: negative, Condition: enums.ProductConditionGood},
		"bad condition":     {Price: decimal.NewFromInt(5), Condition: enums.ProductCondition("broken")},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), "seller", input)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestCreateProductRejectsValuesOutsideColumnScale(t *testing.T) {
	svc, conn := newTestService(t)
	subCent := decimal.RequireFromString("0.001")
	tooLarge := decimal.RequireFromString("100000000")

	cases := []struct {
		name  string
		input CreateProductInput
		field string
	}{
		{"sub-cent price", CreateProductInput{Price: subCent, Condition: enums.ProductConditionGood}, "price"},
		{"oversized price", CreateProductInput{Price: tooLarge, Condition: enums.ProductConditionGood}, "price"},
		{"sub-cent original", CreateProductInput{Price: decimal.NewFromInt(5), OriginalPrice: &subCent, Condition: enums.ProductConditionGood}, "originalPrice"},
		{"oversized original", CreateProductInput{Price: decimal.NewFromInt(5), OriginalPrice: &tooLarge, Condition: enums.ProductConditionGood}, "originalPrice"},
		{"sub-cent carbon", CreateProductInput{Price: decimal.NewFromInt(5), CarbonSaved: decimal.RequireFromString("0.004"), Condition: enums.ProductConditionGood}, "carbonSaved"},
		{"oversized carbon", CreateProductInput{Price: decimal.NewFromInt(5), CarbonSaved: tooLarge, Condition: enums.ProductConditionGood}, "carbonSaved"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), "seller", tc.input)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
			require.Equal(t, map[string]any{"field": tc.field}, pkgerrors.As(err).Details())
		})
	}

	var count int64
	require.NoError(t, conn.Model(&models.Product{}).Count(&count).Error)
	require.Zero(t, count)

	largest, err := svc.CreateProduct(context.Background(), "seller", CreateProductInput{
		Price:       decimal.RequireFromString("99999999.99"),
		Condition:   enums.ProductConditionGood,
		CarbonSaved: decimal.RequireFromString("0.50"),
	})
	require.NoError(t, err)
	require.True(t, largest.Price.Equal(decimal.RequireFromString("99999999.99")))
}

func TestUpdateProductRejectsValuesOutsideColumnScale(t *testing.T) {
	svc, conn := newTestService(t)
	product := dbtest.MustCreateProduct(t, conn, "seller", dbtest.WithPrice("12.00"))

	subCent := decimal.RequireFromString("9.999")
	tooLarge := decimal.RequireFromString("1000000000")
	for name, input := range map[string]UpdateProductInput{
		"price":         {Price: &subCent},
		"originalPrice": {OriginalPrice: &tooLarge},
		"carbonSaved":   {CarbonSaved: &subCent},
	} {
		_, err := svc.UpdateProduct(context.Background(), "seller", product.ID, input)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), name)
		require.Equal(t, map[string]any{"field": name}, pkgerrors.As(err).Details())
	}

	var stored models.Product
	require.NoError(t, conn.First(&stored, "id = ?", product.ID).Error)
	require.True(t, stored.Price.Equal(decimal.RequireFromString("12")))
}

func TestSchemaRejectsSubCentPrice(t *testing.T) {
	_, conn := newTestService(t)
	err := conn.Create(&models.Product{
		SellerID:  "seller",
		Title:     "Raw insert",
		Price:     decimal.RequireFromString("0.001"),
		Condition: enums.ProductConditionGood,
		Available: true,
	}).Error
	require.Error(t, err)
}

func TestListBySellerIncludesUnavailable(t *testing.T) {
	svc, conn := newTestService(t)
	mine := dbtest.MustCreateProduct(t, conn, "seller")
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", mine.ID).Update("available", false).Error)
	dbtest.MustCreateProduct(t, conn, "other-seller")

	list, err := svc.ListBySeller(context.Background(), "seller")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, mine.ID, list[0].ID)
	require.False(t, list[0].Available)
}

func TestUpdateProductOwnership(t *testing.T) {
	svc, conn := newTestService(t)
	product := dbtest.MustCreateProduct(t, conn, "seller")

	title := "Patched jacket"
	price := decimal.RequireFromString("19.99")
	updated, err := svc.UpdateProduct(context.Background(), "seller", product.ID, UpdateProductInput{Title: &title, Price: &price})
	require.NoError(t, err)
	require.Equal(t, title, updated.Title)
	require.True(t, updated.Price.Equal(price))

	_, err = svc.UpdateProduct(context.Background(), "other-seller", product.ID, UpdateProductInput{Title: &title})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.UpdateProduct(context.Background(), "seller", uuid.New(), UpdateProductInput{Title: &title})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	zero := decimal.Zero
	_, err = svc.UpdateProduct(context.Background(), "seller", product.ID, UpdateProductInput{Price: &zero})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMarkUnavailable(t *testing.T) {
	_, conn := newTestService(t)
	repo := NewRepository(conn)
	a := dbtest.MustCreateProduct(t, conn, "seller")
	b := dbtest.MustCreateProduct(t, conn, "seller")

	require.NoError(t, repo.MarkUnavailable(context.Background(), []uuid.UUID{a.ID}))

	var stored []models.Product
	require.NoError(t, conn.Order("created_at").Find(&stored).Error)
	for _, p := range stored {
		require.Equal(t, p.ID == b.ID, p.Available)
	}
}

func TestExportBySeller(t *testing.T) {
	svc, conn := newTestService(t)
	product := dbtest.MustCreateProduct(t, conn, "seller", dbtest.WithTitle("Linen shirt"))

	raw, err := svc.ExportBySeller(context.Background(), "seller")
	require.NoError(t, err)

	file, err := xlsx.OpenBinary(raw)
	require.NoError(t, err)
	sheet, ok := file.Sheet[listingsSheet]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 2)
	require.Equal(t, "Title", sheet.Rows[0].Cells[1].String())
	require.Equal(t, product.ID.String(), sheet.Rows[1].Cells[0].String())
	require.Equal(t, "Linen shirt", sheet.Rows[1].Cells[1].String())
	require.Equal(t, "25.50", sheet.Rows[1].Cells[4].String())
}
