package models

import "github.com/shopspring/decimal"

// RecipeRow is one ingredient line of a finished good's recipe ("Калькуляція").
// Amount is per single unit of the finished good.
type RecipeRow struct {
	FinishedGood string          `json:"finished_good"`
	Ingredient   string          `json:"ingredient"`
	Amount       decimal.Decimal `json:"amount"`
	Unit         string          `json:"unit"`
}

// Recipe groups rows of one finished good, in table order.
type Recipe struct {
	Name        string      `json:"name"`
	Ingredients []RecipeRow `json:"ingredients"`
}

// GroupRecipes folds table rows into recipes keyed by normalized finished-good name.
// Both order of recipes and order of ingredients follow the table.
func GroupRecipes(rows []RecipeRow) []Recipe {
	index := map[string]int{}
	var out []Recipe
	for _, r := range rows {
		key := NormalizeName(r.FinishedGood)
		if key == "" || NormalizeName(r.Ingredient) == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Recipe{Name: r.FinishedGood})
		}
		out[i].Ingredients = append(out[i].Ingredients, r)
	}
	return out
}

// IngredientChange is one ledger adjustment made by recipe expansion.
type IngredientChange struct {
	Ingredient string          `json:"ingredient"`
	Delta      decimal.Decimal `json:"delta"`
}

// ExpansionReport describes what a recipe write-off touched.
type ExpansionReport struct {
	FinishedGood string `json:"finished_good"`
	// Matched counts recipe rows for the finished good, blank ingredients included.
	Matched int                `json:"matched"`
	Applied []IngredientChange `json:"applied,omitempty"`
	// Missing lists ingredients with no ledger row; they are skipped.
	Missing []string `json:"missing,omitempty"`
	// Failed lists ingredients whose update hit a store error.
	Failed []string `json:"failed,omitempty"`
}

func (r ExpansionReport) RecipeFound() bool { return r.Matched > 0 }
