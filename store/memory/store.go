// Package memory is the in-process store used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"bitbucket.org/mmdatafocus/stock_backend/models"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu        sync.RWMutex
	stock     []models.StockRow
	stockIdx  map[string]int
	directory []models.DirectoryEntry
	dirIdx    map[string]int
	recipes   []models.RecipeRow
	journal   []models.JournalEntry
	purchases []models.PurchaseRecord
	sales     []models.SaleRecord
	sellable  []string
	settings  map[string]string
}

var _ models.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		stockIdx: map[string]int{},
		dirIdx:   map[string]int{},
		settings: map[string]string{},
	}
}

// Seed is the initial content of a memory store.
type Seed struct {
	Stock     []models.StockRow
	Directory []models.DirectoryEntry
	Recipes   []models.RecipeRow
	Sellable  []string
	Settings  map[string]string
}

// NewSeeded builds a store from seed. Duplicate stock keys keep the first row.
func NewSeeded(seed Seed) *Store {
	s := New()
	for _, row := range seed.Stock {
		_ = s.CreateStock(context.Background(), row)
	}
	for _, d := range seed.Directory {
		_ = s.UpsertDirectory(context.Background(), d)
	}
	s.recipes = append(s.recipes, seed.Recipes...)
	s.sellable = append(s.sellable, seed.Sellable...)
	for k, v := range seed.Settings {
		s.settings[k] = v
	}
	return s
}

func (s *Store) FindStock(ctx context.Context, key string) (models.StockRow, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.stockIdx[key]
	if !ok {
		return models.StockRow{}, false, nil
	}
	return s.stock[i], true, nil
}

func (s *Store) ListStock(ctx context.Context) ([]models.StockRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.StockRow, len(s.stock))
	copy(out, s.stock)
	return out, nil
}

func (s *Store) SetStock(ctx context.Context, key string, qty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.stockIdx[key]
	if !ok {
		return fmt.Errorf("set stock %q: %w", key, models.ErrProductNotFound)
	}
	s.stock[i].CurrentStock = qty
	return nil
}

func (s *Store) CreateStock(ctx context.Context, row models.StockRow) error {
	key := row.Key()
	if key == "" {
		return fmt.Errorf("%w: empty product name", models.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stockIdx[key]; ok {
		return fmt.Errorf("create stock %q: %w", row.Name, models.ErrProductExists)
	}
	s.stockIdx[key] = len(s.stock)
	s.stock = append(s.stock, row)
	return nil
}

func (s *Store) ListDirectory(ctx context.Context) ([]models.DirectoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DirectoryEntry, len(s.directory))
	copy(out, s.directory)
	return out, nil
}

func (s *Store) FindDirectory(ctx context.Context, key string) (models.DirectoryEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.dirIdx[key]
	if !ok {
		return models.DirectoryEntry{}, false, nil
	}
	return s.directory[i], true, nil
}

func (s *Store) UpsertDirectory(ctx context.Context, entry models.DirectoryEntry) error {
	key := entry.Key()
	if key == "" {
		return fmt.Errorf("%w: empty directory name", models.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.dirIdx[key]; ok {
		s.directory[i] = entry
		return nil
	}
	s.dirIdx[key] = len(s.directory)
	s.directory = append(s.directory, entry)
	return nil
}

func (s *Store) ListRecipes(ctx context.Context) ([]models.RecipeRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RecipeRow, len(s.recipes))
	copy(out, s.recipes)
	return out, nil
}

func (s *Store) FindRecipe(ctx context.Context, key string) ([]models.RecipeRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RecipeRow
	for _, r := range s.recipes {
		if models.NormalizeName(r.FinishedGood) == key {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) AppendJournal(ctx context.Context, entry models.JournalEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Position = len(s.journal) + 1
	s.journal = append(s.journal, entry)
	return entry.Position, nil
}

func (s *Store) RecentJournal(ctx context.Context, limit int) ([]models.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from := 0
	if limit > 0 && len(s.journal) > limit {
		from = len(s.journal) - limit
	}
	out := make([]models.JournalEntry, len(s.journal)-from)
	copy(out, s.journal[from:])
	return out, nil
}

func (s *Store) AppendPurchase(ctx context.Context, rec models.PurchaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases = append(s.purchases, rec)
	return nil
}

func (s *Store) AppendSale(ctx context.Context, rec models.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, rec)
	return nil
}

func (s *Store) ListSellable(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.sellable))
	copy(out, s.sellable)
	return out, nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[key]
	return v, ok, nil
}

// Purchases and Sales expose the summary logs for tests and the rebuild tool.
func (s *Store) Purchases() []models.PurchaseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PurchaseRecord, len(s.purchases))
	copy(out, s.purchases)
	return out
}

func (s *Store) Sales() []models.SaleRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SaleRecord, len(s.sales))
	copy(out, s.sales)
	return out
}
