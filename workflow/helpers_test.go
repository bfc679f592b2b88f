package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bitbucket.org/mmdatafocus/stock_backend/models"
	"bitbucket.org/mmdatafocus/stock_backend/store/memory"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var errStoreDown = errors.New("store down")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func qty(s string) *models.LooseDecimal {
	return &models.LooseDecimal{Decimal: dec(s)}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.AlertEvent
}

func (s *recordingSink) Publish(_ context.Context, ev models.AlertEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
	fn    func(ctx context.Context, call int) error
}

func (n *recordingNotifier) Notify(ctx context.Context, text string) error {
	n.mu.Lock()
	n.texts = append(n.texts, text)
	call := len(n.texts)
	n.mu.Unlock()
	if n.fn != nil {
		return n.fn(ctx, call)
	}
	return nil
}

func (n *recordingNotifier) calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.texts)
}

// flakyStore fails selected operations of an otherwise working memory store.
type flakyStore struct {
	*memory.Store
	failSetFor    string
	failJournal   bool
	failRecipes   bool
	failDirectory bool
}

func (s *flakyStore) SetStock(ctx context.Context, key string, q decimal.Decimal) error {
	if s.failSetFor != "" && key == models.NormalizeName(s.failSetFor) {
		return errStoreDown
	}
	return s.Store.SetStock(ctx, key, q)
}

func (s *flakyStore) AppendJournal(ctx context.Context, e models.JournalEntry) (int, error) {
	if s.failJournal {
		return 0, errStoreDown
	}
	return s.Store.AppendJournal(ctx, e)
}

func (s *flakyStore) FindRecipe(ctx context.Context, key string) ([]models.RecipeRow, error) {
	if s.failRecipes {
		return nil, errStoreDown
	}
	return s.Store.FindRecipe(ctx, key)
}

func (s *flakyStore) FindDirectory(ctx context.Context, key string) (models.DirectoryEntry, bool, error) {
	if s.failDirectory {
		return models.DirectoryEntry{}, false, errStoreDown
	}
	return s.Store.FindDirectory(ctx, key)
}

// cafeSeed is a small coffee shop: three ingredients, a latte recipe and a
// lemonade with no recipe.
func cafeSeed() memory.Seed {
	return memory.Seed{
		Stock: []models.StockRow{
			{Name: "Молоко", Unit: "л", CurrentStock: dec("10")},
			{Name: "Кава", Unit: "кг", CurrentStock: dec("1")},
			{Name: "Стакан", Unit: "шт", CurrentStock: dec("100")},
		},
		Directory: []models.DirectoryEntry{
			{Category: "Молочка", Name: "Молоко", Unit: "л", CriticalLevel: dec("5")},
			{Category: "Зерно", Name: "Кава", Unit: "кг", CriticalLevel: dec("0.5")},
		},
		Recipes: []models.RecipeRow{
			{FinishedGood: "Лате", Ingredient: "Молоко", Amount: dec("0.2"), Unit: "л"},
			{FinishedGood: "Лате", Ingredient: "Кава", Amount: dec("0.018"), Unit: "кг"},
			{FinishedGood: "Лате", Ingredient: "Стакан", Amount: dec("1"), Unit: "шт"},
		},
		Sellable: []string{"Лате", "Лимонад"},
	}
}

func stockOf(t *testing.T, s models.StockRepository, name string) decimal.Decimal {
	t.Helper()
	row, ok, err := s.FindStock(context.Background(), models.NormalizeName(name))
	if err != nil || !ok {
		t.Fatalf("FindStock(%q): ok=%v err=%v", name, ok, err)
	}
	return row.CurrentStock
}

func newTestEngine(store LedgerStore, sink AlertSink) *StockEngine {
	logger := quietLogger()
	return NewStockEngine(store, NewKeyLocker(nil, logger), sink, logger)
}
