package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/models"
	"github.com/shopspring/decimal"
)

type ingredientTotals struct {
	receipts, recipe, direct, losses decimal.Decimal
}

type productTotals struct {
	name     string
	listed   bool
	quantity decimal.Decimal
	revenue  decimal.Decimal
}

// Analytics reports ingredient movement and finished-good sales for a period.
// The whole journal is read; rows without a date or item are skipped.
func Analytics(ctx context.Context, store models.Store, period models.AnalyticsPeriod, now time.Time, loc *time.Location) (*models.AnalyticsReport, error) {
	stock, err := store.ListStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	journal, err := store.RecentJournal(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	directory, err := store.ListDirectory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	recipeRows, err := store.ListRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	sellable, err := store.ListSellable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sellable products: %w", err)
	}

	start := period.Start(now, loc)
	report := &models.AnalyticsReport{
		Period:      period,
		Ingredients: []models.IngredientMovement{},
		Products:    []models.ProductSales{},
	}
	if !start.IsZero() {
		report.From = &start
	}

	recipes := map[string][]models.RecipeRow{}
	for _, r := range recipeRows {
		k := models.NormalizeName(r.FinishedGood)
		if k == "" || models.NormalizeName(r.Ingredient) == "" {
			continue
		}
		recipes[k] = append(recipes[k], r)
	}

	// Latest arrival price per ingredient over the whole journal.
	lastPrice := map[string]decimal.Decimal{}
	ingredients := map[string]*ingredientTotals{}
	ingredient := func(key string) *ingredientTotals {
		t, ok := ingredients[key]
		if !ok {
			t = &ingredientTotals{}
			ingredients[key] = t
		}
		return t
	}
	products := map[string]*productTotals{}
	var productOrder []string
	addProduct := func(name string) *productTotals {
		k := models.NormalizeName(name)
		p, ok := products[k]
		if !ok {
			p = &productTotals{name: strings.TrimSpace(name)}
			products[k] = p
			productOrder = append(productOrder, k)
		}
		return p
	}
	for _, name := range sellable {
		if models.NormalizeName(name) != "" {
			addProduct(name).listed = true
		}
	}

	for _, e := range journal {
		if e.Date.IsZero() || strings.TrimSpace(e.Item) == "" {
			continue
		}
		key := models.NormalizeName(e.Item)
		kind := models.ClassifyTransactionKind(models.TransactionViewFor(e).Type)
		if kind == models.TransactionKindArrival && e.PricePerUnit.IsPositive() {
			lastPrice[key] = e.PricePerUnit
		}
		if e.Date.Before(start) {
			continue
		}
		switch kind {
		case models.TransactionKindArrival:
			ingredient(key).receipts = ingredient(key).receipts.Add(e.Quantity)
		case models.TransactionKindWriteOff:
			ingredient(key).losses = ingredient(key).losses.Add(e.Quantity)
		case models.TransactionKindSale:
			ingredient(key).direct = ingredient(key).direct.Add(e.Quantity)
			for _, r := range recipes[key] {
				ik := models.NormalizeName(r.Ingredient)
				ingredient(ik).recipe = ingredient(ik).recipe.Add(models.RoundStock(r.Amount.Mul(e.Quantity)))
			}
			p := addProduct(e.Item)
			p.quantity = p.quantity.Add(e.Quantity)
			p.revenue = p.revenue.Add(e.Total)
		}
	}

	dirByKey := make(map[string]models.DirectoryEntry, len(directory))
	for _, d := range directory {
		if k := d.Key(); k != "" {
			if _, dup := dirByKey[k]; !dup {
				dirByKey[k] = d
			}
		}
	}
	for _, row := range stock {
		if strings.TrimSpace(row.Name) == "" {
			continue
		}
		view := productView(row, dirByKey[row.Key()])
		t := ingredients[row.Key()]
		if t == nil {
			t = &ingredientTotals{}
		}
		sales := t.recipe.Add(t.direct)
		report.Ingredients = append(report.Ingredients, models.IngredientMovement{
			Name:              view.Name,
			Category:          view.Category,
			Unit:              view.Unit,
			Receipts:          models.NewQuantity(t.receipts),
			RecipeConsumption: models.NewQuantity(t.recipe),
			DirectSales:       models.NewQuantity(t.direct),
			Sales:             models.NewQuantity(sales),
			Losses:            models.NewQuantity(t.losses),
			NetChange:         models.NewQuantity(t.receipts.Sub(sales).Sub(t.losses)),
			CurrentStock:      view.CurrentStock,
		})
	}

	var totalRevenue, totalCost, totalProfit decimal.Decimal
	for _, k := range productOrder {
		p := products[k]
		if !p.listed && !p.quantity.IsPositive() {
			continue
		}
		cost := decimal.Zero
		for _, r := range recipes[k] {
			price := lastPrice[models.NormalizeName(r.Ingredient)]
			cost = cost.Add(r.Amount.Mul(price).Mul(p.quantity))
		}
		cost = models.RoundMoney(cost)
		revenue := models.RoundMoney(p.revenue)
		profit := models.RoundMoney(p.revenue.Sub(cost))
		report.Products = append(report.Products, models.ProductSales{
			Name:         p.name,
			QuantitySold: models.NewQuantity(p.quantity),
			Revenue:      models.NewMoney(revenue),
			Cost:         models.NewMoney(cost),
			Profit:       models.NewMoney(profit),
			RecipeItems:  len(recipes[k]),
		})
		totalRevenue = totalRevenue.Add(revenue)
		totalCost = totalCost.Add(cost)
		totalProfit = totalProfit.Add(profit)
	}
	report.TotalRevenue = models.NewMoney(totalRevenue)
	report.TotalCost = models.NewMoney(totalCost)
	report.TotalProfit = models.NewMoney(totalProfit)

	return report, nil
}
