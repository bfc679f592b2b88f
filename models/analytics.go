package models

import (
	"fmt"
	"strings"
	"time"
)

type AnalyticsPeriod string

const (
	AnalyticsPeriodToday AnalyticsPeriod = "today"
	AnalyticsPeriod7d    AnalyticsPeriod = "7d"
	AnalyticsPeriod30d   AnalyticsPeriod = "30d"
	AnalyticsPeriodAll   AnalyticsPeriod = "all"
)

// ParseAnalyticsPeriod defaults to 7d on empty input.
func ParseAnalyticsPeriod(raw string) (AnalyticsPeriod, error) {
	switch p := AnalyticsPeriod(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return AnalyticsPeriod7d, nil
	case AnalyticsPeriodToday, AnalyticsPeriod7d, AnalyticsPeriod30d, AnalyticsPeriodAll:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown period %q", ErrValidation, raw)
	}
}

// Start returns the inclusive lower bound of the period in loc.
// The zero time means unbounded.
func (p AnalyticsPeriod) Start(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	switch p {
	case AnalyticsPeriodToday:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	case AnalyticsPeriod7d:
		return now.AddDate(0, 0, -7)
	case AnalyticsPeriod30d:
		return now.AddDate(0, 0, -30)
	default:
		return time.Time{}
	}
}

// IngredientMovement summarizes one ledger row over a period.
// Sales is RecipeConsumption plus DirectSales.
type IngredientMovement struct {
	Name              string   `json:"name"`
	Category          string   `json:"category"`
	Unit              string   `json:"unit"`
	Receipts          Quantity `json:"receipts"`
	RecipeConsumption Quantity `json:"recipeConsumption"`
	DirectSales       Quantity `json:"directSales"`
	Sales             Quantity `json:"sales"`
	Losses            Quantity `json:"losses"`
	NetChange         Quantity `json:"netChange"`
	CurrentStock      Quantity `json:"currentStock"`
}

// ProductSales summarizes one finished good over a period.
// Cost uses the latest arrival price of each ingredient.
type ProductSales struct {
	Name         string   `json:"name"`
	QuantitySold Quantity `json:"quantitySold"`
	Revenue      Money    `json:"revenue"`
	Cost         Money    `json:"cost"`
	Profit       Money    `json:"profit"`
	RecipeItems  int      `json:"recipeItems"`
}

type AnalyticsReport struct {
	Period       AnalyticsPeriod      `json:"period"`
	From         *time.Time           `json:"from,omitempty"`
	Ingredients  []IngredientMovement `json:"ingredients"`
	Products     []ProductSales       `json:"products"`
	TotalRevenue Money                `json:"totalRevenue"`
	TotalCost    Money                `json:"totalCost"`
	TotalProfit  Money                `json:"totalProfit"`
}
