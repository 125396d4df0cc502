package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Plan is a purchasable credits package. AmountMinor is in the currency's
// smallest unit (paise for INR).
type Plan struct {
	ID          string
	Name        string
	Description string
	Credits     int
	AmountMinor int64
	Currency    string
	Features    []string
	Popular     bool
}

// Price is the display price in major units.
func (p Plan) Price() decimal.Decimal {
	return decimal.New(p.AmountMinor, -2)
}

// PricePerCredit is rounded to two places; zero for a plan without credits.
func (p Plan) PricePerCredit() decimal.Decimal {
	if p.Credits <= 0 {
		return decimal.Zero
	}
	return p.Price().Div(decimal.NewFromInt(int64(p.Credits))).Round(2)
}

var catalog = []Plan{
	{
		ID:          "starter",
		Name:        "Starter Pack",
		Description: "Perfect for trying out our hair analysis service.",
		Credits:     100,
		AmountMinor: 19900,
		Currency:    "inr",
		Features:    []string{"100 analysis credits", "AI-powered hair diagnosis", "Product recommendations", "30-day validity"},
	},
	{
		ID:          "popular",
		Name:        "Popular Pack",
		Description: "Best value for regular hair care tracking.",
		Credits:     500,
		AmountMinor: 79900,
		Currency:    "inr",
		Features:    []string{"500 analysis credits", "Priority AI processing", "Detailed reports & history", "Product recommendations", "90-day validity"},
		Popular:     true,
	},
	{
		ID:          "premium",
		Name:        "Premium Pack",
		Description: "For comprehensive hair care monitoring.",
		Credits:     1500,
		AmountMinor: 199900,
		Currency:    "inr",
		Features:    []string{"1500 analysis credits", "Fastest processing", "Unlimited report history", "Premium support", "180-day validity"},
	},
}

// Plans returns a copy of the catalogue in display order.
func Plans() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

// PlanByID looks a plan up case-insensitively.
func PlanByID(id string) (Plan, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
