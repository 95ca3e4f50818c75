package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecomarket/marketplace-backend/pkg/enums"
)

// User mirrors an identity-provider account. ID is the provider's subject.
type User struct {
	ID              string          `gorm:"column:id;type:text;primaryKey"`
	Email           *string         `gorm:"column:email;uniqueIndex"`
	FirstName       *string         `gorm:"column:first_name"`
	LastName        *string         `gorm:"column:last_name"`
	ProfileImageURL *string         `gorm:"column:profile_image_url"`
	Role            enums.UserRole  `gorm:"column:role;not null;default:'buyer'"`
	CarbonSaved     decimal.Decimal `gorm:"column:carbon_saved;type:numeric(10,2);not null;default:0"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
