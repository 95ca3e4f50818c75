package product

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecomarket/marketplace-backend/pkg/db"
	"github.com/ecomarket/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/ecomarket/marketplace-backend/pkg/errors"
)

// Service exposes catalog reads and seller listing management.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) ([]ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, sellerID string, input CreateProductInput) (*ProductDTO, error)
	ListBySeller(ctx context.Context, sellerID string) ([]ProductDTO, error)
	UpdateProduct(ctx context.Context, sellerID string, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	ExportBySeller(ctx context.Context, sellerID string) ([]byte, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a product service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) ([]ProductDTO, error) {
	list, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return FromModels(list), nil
}

// GetProduct increments the view counter before reading so the returned
// count includes this fetch.
func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	rows, err := s.repo.IncrementViews(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment product views")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return s.load(ctx, id)
}

func (s *service) CreateProduct(ctx context.Context, sellerID string, input CreateProductInput) (*ProductDTO, error) {
	if err := validateMoney(input.Price, input.OriginalPrice, input.CarbonSaved); err != nil {
		return nil, err
	}
	if !input.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid condition").WithDetails(map[string]any{"field": "condition"})
	}

	product := &models.Product{
		SellerID:    sellerID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Category:    strings.TrimSpace(input.Category),
		Condition:   input.Condition,
		CarbonSaved: input.CarbonSaved,
		EcoScore:    strings.ToUpper(strings.TrimSpace(input.EcoScore)),
		ImageURL:    input.ImageURL,
		IsFeatured:  input.IsFeatured,
		Available:   true,
	}
	if input.OriginalPrice != nil {
		product.OriginalPrice = decimal.NewNullDecimal(*input.OriginalPrice)
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return s.load(ctx, created.ID)
}

func (s *service) ListBySeller(ctx context.Context, sellerID string) ([]ProductDTO, error) {
	list, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list seller products")
	}
	return FromModels(list), nil
}

func (s *service) UpdateProduct(ctx context.Context, sellerID string, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if existing.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another seller")
	}

	updates, err := buildUpdates(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	return s.load(ctx, id)
}

func (s *service) ExportBySeller(ctx context.Context, sellerID string) ([]byte, error) {
	list, err := s.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteListingsWorkbook(&buf, list); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render listings workbook")
	}
	return buf.Bytes(), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	dto := FromModel(*product)
	return &dto, nil
}

func buildUpdates(input UpdateProductInput) (map[string]any, error) {
	updates := map[string]any{}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fieldError("title", "title is required")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, fieldError("price", "price must be greater than zero")
		}
		if err := checkMoneyScale("price", *input.Price); err != nil {
			return nil, err
		}
		updates["price"] = *input.Price
	}
	if input.OriginalPrice != nil {
		if !input.OriginalPrice.IsPositive() {
			return nil, fieldError("originalPrice", "original price must be greater than zero")
		}
		if err := checkMoneyScale("originalPrice", *input.OriginalPrice); err != nil {
			return nil, err
		}
		updates["original_price"] = *input.OriginalPrice
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(*input.Category)
	}
	if input.Condition != nil {
		if !input.Condition.IsValid() {
			return nil, fieldError("condition", "invalid condition")
		}
		updates["condition"] = *input.Condition
	}
	if input.CarbonSaved != nil {
		if input.CarbonSaved.IsNegative() {
			return nil, fieldError("carbonSaved", "carbon saved must not be negative")
		}
		if err := checkMoneyScale("carbonSaved", *input.CarbonSaved); err != nil {
			return nil, err
		}
		updates["carbon_saved"] = *input.CarbonSaved
	}
	if input.EcoScore != nil {
		updates["eco_score"] = strings.ToUpper(strings.TrimSpace(*input.EcoScore))
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.IsFeatured != nil {
		updates["is_featured"] = *input.IsFeatured
	}
	if input.Available != nil {
		updates["available"] = *input.Available
	}
	return updates, nil
}

// numeric(10,2): two decimal places, eight integer digits.
var maxMoney = decimal.New(1, 8)

func validateMoney(price decimal.Decimal, original *decimal.Decimal, carbon decimal.Decimal) error {
	if !price.IsPositive() {
		return fieldError("price", "price must be greater than zero")
	}
	if err := checkMoneyScale("price", price); err != nil {
		return err
	}
	if original != nil {
		if !original.IsPositive() {
			return fieldError("originalPrice", "original price must be greater than zero")
		}
		if err := checkMoneyScale("originalPrice", *original); err != nil {
			return err
		}
	}
	if carbon.IsNegative() {
		return fieldError("carbonSaved", "carbon saved must not be negative")
	}
	return checkMoneyScale("carbonSaved", carbon)
}

func checkMoneyScale(field string, value decimal.Decimal) error {
	if !value.Equal(value.Truncate(2)) {
		return fieldError(field, field+" must have at most two decimal places")
	}
	if value.Abs().GreaterThanOrEqual(maxMoney) {
		return fieldError(field, field+" must be less than 100000000")
	}
	return nil
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{"field": field})
}
