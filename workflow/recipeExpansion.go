package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/models"
	"github.com/shopspring/decimal"
)

// WriteOffIngredients decrements every ingredient of finishedGood's recipe by
// round(amount * qtySold). Rows are independent: a missing ingredient or a
// failing update is recorded in the report and the remaining rows still run.
// The error is non-nil only when the recipe table itself could not be read.
func (e *StockEngine) WriteOffIngredients(ctx context.Context, finishedGood string, qtySold decimal.Decimal) (models.ExpansionReport, error) {
	report := models.ExpansionReport{FinishedGood: finishedGood}
	key := models.NormalizeName(finishedGood)
	if key == "" {
		return report, nil
	}

	rows, err := e.store.FindRecipe(ctx, key)
	if err != nil {
		recipeExpansionsTotal.WithLabelValues("error").Inc()
		return report, fmt.Errorf("find recipe %q: %w", finishedGood, err)
	}

	for _, row := range rows {
		report.Matched++
		if models.NormalizeName(row.Ingredient) == "" {
			continue
		}

		delta := models.RoundStock(row.Amount.Mul(qtySold)).Neg()
		found, err := e.UpdateStock(ctx, row.Ingredient, delta)
		switch {
		case err != nil:
			config.LogError(e.logger, "recipeExpansion.go", "WriteOffIngredients", "update ingredient", map[string]any{
				"finished_good": finishedGood,
				"ingredient":    row.Ingredient,
			}, err)
			report.Failed = append(report.Failed, row.Ingredient)
		case !found:
			report.Missing = append(report.Missing, row.Ingredient)
		default:
			report.Applied = append(report.Applied, models.IngredientChange{
				Ingredient: row.Ingredient,
				Delta:      delta,
			})
		}
	}

	if !report.RecipeFound() {
		recipeExpansionsTotal.WithLabelValues("recipe_not_found").Inc()
		config.LogWarn(e.logger, "recipeExpansion.go", "WriteOffIngredients", models.ErrRecipeNotFound.Error(), map[string]any{
			"finished_good": finishedGood,
		})
		return report, nil
	}
	recipeExpansionsTotal.WithLabelValues("expanded").Inc()
	return report, nil
}
