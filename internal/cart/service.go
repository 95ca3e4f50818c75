package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ecomarket/marketplace-backend/pkg/db"
	"github.com/ecomarket/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/ecomarket/marketplace-backend/pkg/errors"
)

// DefaultQuantity applies when add-to-cart omits a quantity.
const DefaultQuantity = 1

type productChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service exposes cart operations for the authenticated buyer.
type Service interface {
	Add(ctx context.Context, userID string, productID uuid.UUID, quantity int) (*CartItemDTO, error)
	UpdateQuantity(ctx context.Context, userID string, itemID uuid.UUID, quantity int) (*CartItemDTO, error)
	Remove(ctx context.Context, userID string, itemID uuid.UUID) error
	List(ctx context.Context, userID string) ([]CartItemDTO, error)
}

type service struct {
	repo     CartRepository
	products productChecker
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, products productChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product checker required")
	}
	return &service{repo: repo, products: products}, nil
}

// Add always inserts a new line; repeated adds of one product are not merged.
func (s *service) Add(ctx context.Context, userID string, productID uuid.UUID, quantity int) (*CartItemDTO, error) {
	if quantity < 1 {
		return nil, quantityError()
	}

	exists, err := s.products.Exists(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	created, err := s.repo.Create(ctx, &models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
	}
	return s.load(ctx, userID, created.ID)
}

func (s *service) UpdateQuantity(ctx context.Context, userID string, itemID uuid.UUID, quantity int) (*CartItemDTO, error) {
	if quantity < 1 {
		return nil, quantityError()
	}
	rows, err := s.repo.UpdateQuantity(ctx, userID, itemID, quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.load(ctx, userID, itemID)
}

func (s *service) Remove(ctx context.Context, userID string, itemID uuid.UUID) error {
	rows, err := s.repo.Delete(ctx, userID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) List(ctx context.Context, userID string) ([]CartItemDTO, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}
	return FromModels(items), nil
}

func (s *service) load(ctx context.Context, userID string, id uuid.UUID) (*CartItemDTO, error) {
	item, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	dto := FromModel(*item)
	return &dto, nil
}

func quantityError() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
		WithDetails(map[string]any{"field": "quantity"})
}
