package workflow

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/models"
	"bitbucket.org/mmdatafocus/stock_backend/store/memory"
)

func TestAnalyticsIngredientsAndProducts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded(cafeSeed())
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, 3, d, 9, 0, 0, 0, time.UTC) }

	entries := []models.JournalEntry{
		// Outside 7d, only sets the price.
		{Date: day(1), Item: "Кава", Quantity: dec("1"), PricePerUnit: dec("800"), Type: models.TransactionKindArrival},
		{Date: day(5), Item: "Молоко", Quantity: dec("10"), PricePerUnit: dec("40"), Type: models.TransactionKindArrival},
		{Date: day(6), Item: "Кава", Quantity: dec("0.5"), PricePerUnit: dec("0"), Type: models.TransactionKindArrival},
		{Date: day(8), Item: "Лате", Quantity: dec("2"), Total: dec("110"), Type: models.TransactionKindSale},
		{Date: day(9), Item: "Молоко", Quantity: dec("0.3"), Type: models.TransactionKindWriteOff},
		{Date: day(9), Item: "Тістечко", Quantity: dec("1"), Total: dec("60"), Type: models.TransactionKindSale},
	}
	for _, e := range entries {
		if _, err := store.AppendJournal(ctx, e); err != nil {
			t.Fatalf("AppendJournal: %v", err)
		}
	}

	report, err := Analytics(ctx, store, models.AnalyticsPeriod7d, now, time.UTC)
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}

	byName := map[string]models.IngredientMovement{}
	for _, m := range report.Ingredients {
		byName[m.Name] = m
	}
	milk := byName["Молоко"]
	if !milk.Receipts.Decimal().Equal(dec("10")) || !milk.RecipeConsumption.Decimal().Equal(dec("0.4")) ||
		!milk.Losses.Decimal().Equal(dec("0.3")) || !milk.NetChange.Decimal().Equal(dec("9.3")) {
		t.Fatalf("unexpected milk movement %+v", milk)
	}
	coffee := byName["Кава"]
	if !coffee.Receipts.Decimal().Equal(dec("0.5")) || !coffee.Sales.Decimal().Equal(dec("0.036")) {
		t.Fatalf("unexpected coffee movement %+v", coffee)
	}

	if len(report.Products) != 3 {
		t.Fatalf("expected Лате, Лимонад, Тістечко, got %+v", report.Products)
	}
	latte := report.Products[0]
	// 2 x (0.2 l x 40 + 0.018 kg x 800) = 44.80
	if latte.Name != "Лате" || !latte.Revenue.Decimal().Equal(dec("110")) || !latte.Cost.Decimal().Equal(dec("44.8")) ||
		!latte.Profit.Decimal().Equal(dec("65.2")) || latte.RecipeItems != 3 {
		t.Fatalf("unexpected latte %+v", latte)
	}
	if lemonade := report.Products[1]; lemonade.Name != "Лимонад" || !lemonade.QuantitySold.Decimal().IsZero() {
		t.Fatalf("unexpected lemonade %+v", lemonade)
	}
	if !report.TotalRevenue.Decimal().Equal(dec("170")) || !report.TotalProfit.Decimal().Equal(dec("125.2")) {
		t.Fatalf("unexpected totals revenue=%s profit=%s", report.TotalRevenue.Decimal(), report.TotalProfit.Decimal())
	}
	if report.From == nil || !report.From.Equal(time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected period start %v", report.From)
	}
}

func TestAnalyticsTodayStartsAtLocalMidnight(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		t.Skip("tzdata not available")
	}
	now := time.Date(2024, 3, 10, 1, 30, 0, 0, time.UTC) // 03:30 in Kyiv
	start := models.AnalyticsPeriodToday.Start(now, loc)
	want := time.Date(2024, 3, 10, 0, 0, 0, 0, loc)
	if !start.Equal(want) {
		t.Fatalf("expected %v, got %v", want, start)
	}
	if !models.AnalyticsPeriodAll.Start(now, loc).IsZero() {
		t.Fatalf("all must be unbounded")
	}
}

func TestParseAnalyticsPeriod(t *testing.T) {
	tests := []struct {
		raw     string
		want    models.AnalyticsPeriod
		wantErr bool
	}{
		{"", models.AnalyticsPeriod7d, false},
		{"TODAY", models.AnalyticsPeriodToday, false},
		{"30d", models.AnalyticsPeriod30d, false},
		{"all", models.AnalyticsPeriodAll, false},
		{"year", "", true},
	}
	for _, tt := range tests {
		got, err := models.ParseAnalyticsPeriod(tt.raw)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("ParseAnalyticsPeriod(%q) = %q, %v", tt.raw, got, err)
		}
	}
}
