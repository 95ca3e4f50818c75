package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecomarket/marketplace-backend/pkg/enums"
)

// Order is created once per checkout; totals are fixed at creation.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID          string            `gorm:"column:buyer_id;not null"`
	TotalAmount      decimal.Decimal   `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Status           enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	ShippingAddress  string            `gorm:"column:shipping_address;not null"`
	PaymentIntentID  *string           `gorm:"column:payment_intent_id"`
	TotalCarbonSaved decimal.Decimal   `gorm:"column:total_carbon_saved;type:numeric(10,2);not null"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem snapshots price and carbon at purchase time.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	SellerID    string          `gorm:"column:seller_id;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	CarbonSaved decimal.Decimal `gorm:"column:carbon_saved;type:numeric(10,2);not null"`
	Product     *Product        `gorm:"foreignKey:ProductID;references:ID"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
