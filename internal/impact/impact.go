// Package impact derives display equivalents from kilograms of CO2 saved.
package impact

import (
	"github.com/shopspring/decimal"

	"github.com/ecomarket/marketplace-backend/internal/orders"
)

var (
	kgPerTree      = decimal.NewFromInt(22)
	litersPerKg    = decimal.NewFromInt(50)
	kilowattsPerKg = decimal.RequireFromString("2.3")
)

const precision = 2

// Trees is the number of trees absorbing kg of CO2 in a year.
func Trees(kg decimal.Decimal) decimal.Decimal {
	return kg.Div(kgPerTree).Round(precision)
}

// WaterLiters approximates water saved by reuse.
func WaterLiters(kg decimal.Decimal) decimal.Decimal {
	return kg.Mul(litersPerKg).Round(precision)
}

// EnergyKWh approximates energy saved by reuse.
func EnergyKWh(kg decimal.Decimal) decimal.Decimal {
	return kg.Mul(kilowattsPerKg).Round(precision)
}

// Totals is the raw input for a summary.
type Totals struct {
	CarbonSaved decimal.Decimal
	OrderCount  int
}

// ForOrders sums the carbon saved across orders.
func ForOrders(list []orders.OrderDTO) Totals {
	total := decimal.Zero
	for _, o := range list {
		total = total.Add(o.TotalCarbonSaved)
	}
	return Totals{CarbonSaved: total, OrderCount: len(list)}
}
