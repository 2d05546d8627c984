package models

import "github.com/shopspring/decimal"

// Plan is a purchasable monthly request package.
type Plan struct {
	Code        string
	Quota       int
	PriceRUB    decimal.Decimal
	Label       string
	Brief       string
	Recommended bool
}

// Plans is the pricing table, ordered from smallest to largest package.
// Prices drop per request as the package grows.
var Plans = []Plan{
	{Code: "10", Quota: 10, PriceRUB: decimal.NewFromInt(180), Label: "🌱 Starter", Brief: "For trying things out"},
	{Code: "30", Quota: 30, PriceRUB: decimal.NewFromInt(509), Label: "🚀 Boost", Brief: "Better value at a small step up"},
	{Code: "100", Quota: 100, PriceRUB: decimal.NewFromInt(1599), Label: "⭐ Pro", Brief: "Best price-to-volume balance", Recommended: true},
	{Code: "250", Quota: 250, PriceRUB: decimal.NewFromInt(3747), Label: "💎 Premium", Brief: "For active sellers"},
	{Code: "500", Quota: 500, PriceRUB: decimal.NewFromInt(6994), Label: "👑 Emperor", Brief: "For corporate clients"},
	{Code: "1000", Quota: 1000, PriceRUB: decimal.NewFromInt(12999), Label: "🌟 Master", Brief: "For agencies and large catalogs"},
}

// OneTimePriceRUB is the price of a single extra generation.
var OneTimePriceRUB = decimal.NewFromInt(20)

// PlanByCode looks up a plan in the pricing table.
func PlanByCode(code string) (Plan, bool) {
	for _, p := range Plans {
		if p.Code == code {
			return p, true
		}
	}
	return Plan{}, false
}

// PricePerRequest returns the effective per-request price, rounded to
// whole rubles.
func (p Plan) PricePerRequest() decimal.Decimal {
	if p.Quota == 0 {
		return decimal.Zero
	}
	return p.PriceRUB.Div(decimal.NewFromInt(int64(p.Quota))).Round(0)
}
