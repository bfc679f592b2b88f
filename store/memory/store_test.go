package memory

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/stock_backend/models"
	"github.com/shopspring/decimal"
)

func TestStockIndexIsNormalized(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded(Seed{
		Stock: []models.StockRow{
			{Name: " Молоко ", Unit: "л", CurrentStock: decimal.NewFromInt(10)},
		},
	})

	row, ok, err := s.FindStock(ctx, models.NormalizeName("МОЛОКО"))
	if err != nil || !ok {
		t.Fatalf("FindStock: ok=%v err=%v", ok, err)
	}
	if row.Unit != "л" {
		t.Fatalf("unexpected row %+v", row)
	}

	if err := s.CreateStock(ctx, models.StockRow{Name: "молоко"}); !errors.Is(err, models.ErrProductExists) {
		t.Fatalf("expected ErrProductExists, got %v", err)
	}
	if err := s.SetStock(ctx, models.NormalizeName("Кава"), decimal.NewFromInt(1)); !errors.Is(err, models.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestRecentJournalKeepsAppendOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 1; i <= 5; i++ {
		pos, err := s.AppendJournal(ctx, models.JournalEntry{Item: "Цукор", Quantity: decimal.NewFromInt(int64(i))})
		if err != nil {
			t.Fatalf("AppendJournal: %v", err)
		}
		if pos != i {
			t.Fatalf("expected position %d, got %d", i, pos)
		}
	}

	last, _ := s.RecentJournal(ctx, 2)
	if len(last) != 2 || last[0].Position != 4 || last[1].Position != 5 {
		t.Fatalf("unexpected tail %+v", last)
	}
	all, _ := s.RecentJournal(ctx, 0)
	if len(all) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(all))
	}
}

func TestFindRecipeReturnsRowsInTableOrder(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded(Seed{
		Recipes: []models.RecipeRow{
			{FinishedGood: "Лимонад", Ingredient: "Лимон", Amount: decimal.RequireFromString("0.05")},
			{FinishedGood: "Кава", Ingredient: "Зерно", Amount: decimal.RequireFromString("0.018")},
			{FinishedGood: "лимонад ", Ingredient: "Цукор", Amount: decimal.RequireFromString("0.02")},
		},
	})
	rows, err := s.FindRecipe(ctx, models.NormalizeName("ЛИМОНАД"))
	if err != nil {
		t.Fatalf("FindRecipe: %v", err)
	}
	if len(rows) != 2 || rows[0].Ingredient != "Лимон" || rows[1].Ingredient != "Цукор" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}
