package users

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecomarket/marketplace-backend/pkg/db/models"
	"github.com/ecomarket/marketplace-backend/pkg/enums"
)

// UserDTO is the profile shape returned to the owning user.
type UserDTO struct {
	ID              string          `json:"id"`
	Email           *string         `json:"email"`
	FirstName       *string         `json:"firstName"`
	LastName        *string         `json:"lastName"`
	ProfileImageURL *string         `json:"profileImageUrl"`
	Role            enums.UserRole  `json:"role"`
	CarbonSaved     decimal.Decimal `json:"carbonSaved"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// SummaryDTO is the public seller/reviewer card embedded in other payloads.
type SummaryDTO struct {
	ID              string  `json:"id"`
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	ProfileImageURL *string `json:"profileImageUrl"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		ProfileImageURL: u.ProfileImageURL,
		Role:            u.Role,
		CarbonSaved:     u.CarbonSaved,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// SummaryFromModel returns nil when the association was not loaded.
func SummaryFromModel(u *models.User) *SummaryDTO {
	if u == nil {
		return nil
	}
	return &SummaryDTO{
		ID:              u.ID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		ProfileImageURL: u.ProfileImageURL,
	}
}
