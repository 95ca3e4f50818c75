package impact

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ecomarket/marketplace-backend/internal/orders"
	"github.com/ecomarket/marketplace-backend/internal/users"
)

type orderHistory interface {
	ListForBuyer(ctx context.Context, buyerID string) ([]orders.OrderDTO, error)
}

type profileReader interface {
	Get(ctx context.Context, id string) (*users.UserDTO, error)
}

// SummaryDTO is the caller's environmental footprint.
type SummaryDTO struct {
	CarbonSaved         decimal.Decimal `json:"carbonSaved"`
	LifetimeCarbonSaved decimal.Decimal `json:"lifetimeCarbonSaved"`
	WaterSaved          decimal.Decimal `json:"waterSaved"`
	EnergySaved         decimal.Decimal `json:"energySaved"`
	TreesEquivalent     decimal.Decimal `json:"treesEquivalent"`
	OrderCount          int             `json:"orderCount"`
}

type Service interface {
	Summary(ctx context.Context, userID string) (*SummaryDTO, error)
}

type service struct {
	orders orderHistory
	users  profileReader
}

func NewService(history orderHistory, profiles profileReader) (Service, error) {
	if history == nil {
		return nil, fmt.Errorf("order history required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile reader required")
	}
	return &service{orders: history, users: profiles}, nil
}

// Summary derives equivalents from the order sum; the lifetime counter is
// reported alongside it.
func (s *service) Summary(ctx context.Context, userID string) (*SummaryDTO, error) {
	list, err := s.orders.ListForBuyer(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	totals := ForOrders(list)
	return &SummaryDTO{
		CarbonSaved:         totals.CarbonSaved,
		LifetimeCarbonSaved: profile.CarbonSaved,
		WaterSaved:          WaterLiters(totals.CarbonSaved),
		EnergySaved:         EnergyKWh(totals.CarbonSaved),
		TreesEquivalent:     Trees(totals.CarbonSaved),
		OrderCount:          totals.OrderCount,
	}, nil
}
