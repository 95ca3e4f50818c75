package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/pkg/auth"
	"github.com/ecomarket/marketplace-backend/pkg/db"
	"github.com/ecomarket/marketplace-backend/pkg/db/models"
	"github.com/ecomarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ecomarket/marketplace-backend/pkg/errors"
)

// Service manages the local mirror of identity-provider accounts.
type Service interface {
	Ensure(ctx context.Context, identity auth.Identity) error
	Get(ctx context.Context, id string) (*UserDTO, error)
	AddCarbonSaved(ctx context.Context, tx *gorm.DB, id string, amount decimal.Decimal) error
}

type service struct {
	repo *Repository
}

// NewService builds the users service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

// Ensure upserts the caller's profile from token claims.
func (s *service) Ensure(ctx context.Context, identity auth.Identity) error {
	id := strings.TrimSpace(identity.UserID)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "identity subject missing")
	}

	user := &models.User{
		ID:              id,
		Email:           optional(identity.Email),
		FirstName:       optional(identity.FirstName),
		LastName:        optional(identity.LastName),
		ProfileImageURL: optional(identity.ProfileImageURL),
		Role:            enums.UserRoleBuyer,
		CarbonSaved:     decimal.Zero,
	}
	if err := s.repo.Upsert(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert user")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id string) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return FromModel(user), nil
}

// AddCarbonSaved increments the lifetime counter. A nil tx uses the service's
// own connection.
func (s *service) AddCarbonSaved(ctx context.Context, tx *gorm.DB, id string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "carbon amount must not be negative")
	}
	rows, err := s.repo.WithTx(tx).AddCarbonSaved(ctx, id, amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment carbon saved")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
