package reviews

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ecomarket/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/ecomarket/marketplace-backend/pkg/errors"
)

// Service exposes review reads and writes.
type Service interface {
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]ReviewDTO, error)
	Create(ctx context.Context, buyerID string, productID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error)
}

type productChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type service struct {
	repo     *Repository
	products productChecker
}

// NewService constructs a reviews service.
func NewService(repo *Repository, products productChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product checker required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]ReviewDTO, error) {
	list, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	return FromModels(list), nil
}

func (s *service) Create(ctx context.Context, buyerID string, productID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error) {
	if input.Rating < MinRating || input.Rating > MaxRating {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating)).
			WithDetails(map[string]any{"field": "rating"})
	}

	exists, err := s.products.Exists(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	review := &models.Review{
		ProductID: productID,
		BuyerID:   buyerID,
		Rating:    input.Rating,
		Comment:   trimmed(input.Comment),
	}
	created, err := s.repo.Create(ctx, review)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
	}
	dto := FromModel(*created)
	return &dto, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
