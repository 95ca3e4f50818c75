package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/pkg/enums"
)

// Product is a second-hand listing owned by a seller.
type Product struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID      string                 `gorm:"column:seller_id;not null"`
	Title         string                 `gorm:"column:title;not null"`
	Description   string                 `gorm:"column:description;not null"`
	Price         decimal.Decimal        `gorm:"column:price;type:numeric(10,2);not null"`
	OriginalPrice decimal.NullDecimal    `gorm:"column:original_price;type:numeric(10,2)"`
	Category      string                 `gorm:"column:category;not null"`
	Condition     enums.ProductCondition `gorm:"column:condition;not null"`
	CarbonSaved   decimal.Decimal        `gorm:"column:carbon_saved;type:numeric(10,2);not null"`
	EcoScore      string                 `gorm:"column:eco_score;not null"`
	ImageURL      *string                `gorm:"column:image_url"`
	IsFeatured    bool                   `gorm:"column:is_featured;not null;default:false"`
	Available     bool                   `gorm:"column:available;not null;default:true"`
	Views         int                    `gorm:"column:views;not null;default:0"`
	Seller        *User                  `gorm:"foreignKey:SellerID;references:ID"`
	Reviews       []Review               `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
