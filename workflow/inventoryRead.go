package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const inventoryCacheKey = "inventory:snapshot"

// SnapshotCache is satisfied by the Redis-backed cache; nil disables caching.
type SnapshotCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, obj interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// InventoryReader projects the store into the dashboard snapshot.
type InventoryReader struct {
	store    models.Store
	limit    int
	cache    SnapshotCache
	cacheTTL time.Duration
	logger   *logrus.Logger
	now      func() time.Time
}

func NewInventoryReader(store models.Store, limit int, logger *logrus.Logger) *InventoryReader {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &InventoryReader{
		store:  store,
		limit:  limit,
		logger: logger,
		now:    time.Now,
	}
}

// WithCache enables snapshot caching for ttl (> 0).
func (r *InventoryReader) WithCache(cache SnapshotCache, ttl time.Duration) *InventoryReader {
	if cache != nil && ttl > 0 {
		r.cache = cache
		r.cacheTTL = ttl
	}
	return r
}

// Invalidate drops the cached snapshot; wired to TransactionProcessor.OnCommitted.
func (r *InventoryReader) Invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, inventoryCacheKey); err != nil {
		config.LogError(r.logger, "inventoryRead.go", "Invalidate", "delete cached snapshot", nil, err)
	}
}

func (r *InventoryReader) GetInventory(ctx context.Context) (*models.InventorySnapshot, error) {
	if r.cache != nil {
		var cached models.InventorySnapshot
		ok, err := r.cache.Get(ctx, inventoryCacheKey, &cached)
		if err != nil {
			config.LogError(r.logger, "inventoryRead.go", "GetInventory", "read cached snapshot", nil, err)
		} else if ok {
			return &cached, nil
		}
	}

	snapshot, err := r.build(ctx)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, inventoryCacheKey, snapshot, r.cacheTTL); err != nil {
			config.LogError(r.logger, "inventoryRead.go", "GetInventory", "write cached snapshot", nil, err)
		}
	}
	return snapshot, nil
}

func (r *InventoryReader) build(ctx context.Context) (*models.InventorySnapshot, error) {
	stock, err := r.store.ListStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	directory, err := r.store.ListDirectory(ctx)
	if err != nil {
		// A missing directory only loses categories and thresholds.
		config.LogError(r.logger, "inventoryRead.go", "build", "list directory", nil, err)
		directory = nil
	}
	journal, err := r.store.RecentJournal(ctx, r.limit)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	sellable, err := r.store.ListSellable(ctx)
	if err != nil {
		config.LogError(r.logger, "inventoryRead.go", "build", "list sellable products", nil, err)
		sellable = nil
	}
	recipes, err := r.store.ListRecipes(ctx)
	if err != nil {
		config.LogError(r.logger, "inventoryRead.go", "build", "list recipes", nil, err)
		recipes = nil
	}

	snapshot := &models.InventorySnapshot{
		Products:      []models.ProductView{},
		Directory:     []models.DirectoryView{},
		Transactions:  []models.TransactionView{},
		SalesProducts: []models.SalesProductView{},
		Recipes:       []models.RecipeView{},
		LowStock:      []models.ProductView{},
		GeneratedAt:   r.now(),
	}

	dirByKey := make(map[string]models.DirectoryEntry, len(directory))
	for _, d := range directory {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			continue
		}
		category := strings.TrimSpace(d.Category)
		if category == "" {
			category = models.DefaultDirectoryCategory
		}
		if _, dup := dirByKey[d.Key()]; !dup {
			dirByKey[d.Key()] = d
		}
		snapshot.Directory = append(snapshot.Directory, models.DirectoryView{
			Name:          name,
			Category:      category,
			Unit:          strings.TrimSpace(d.Unit),
			CriticalLevel: models.NewQuantity(d.CriticalLevel),
		})
	}

	for _, row := range stock {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			continue
		}
		view := productView(row, dirByKey[row.Key()])
		snapshot.Products = append(snapshot.Products, view)
		if view.CriticalLevel.Decimal().IsPositive() && view.CurrentStock.Decimal().LessThanOrEqual(view.CriticalLevel.Decimal()) {
			snapshot.LowStock = append(snapshot.LowStock, view)
		}
	}

	// Newest first.
	for i := len(journal) - 1; i >= 0; i-- {
		e := journal[i]
		if e.Date.IsZero() || strings.TrimSpace(e.Item) == "" {
			continue
		}
		e.Item = strings.TrimSpace(e.Item)
		snapshot.Transactions = append(snapshot.Transactions, models.TransactionViewFor(e))
	}

	for _, name := range sellable {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		snapshot.SalesProducts = append(snapshot.SalesProducts, models.SalesProductView{
			Name:     name,
			Category: models.FinishedGoodsCategory,
			Unit:     models.SellableUnit,
		})
	}

	for _, rec := range models.GroupRecipes(recipes) {
		view := models.RecipeView{Name: strings.TrimSpace(rec.Name)}
		for _, ing := range rec.Ingredients {
			view.Ingredients = append(view.Ingredients, models.RecipeIngredientView{
				Ingredient: strings.TrimSpace(ing.Ingredient),
				Amount:     models.NewQuantity(ing.Amount),
				Unit:       strings.TrimSpace(ing.Unit),
			})
		}
		snapshot.Recipes = append(snapshot.Recipes, view)
	}

	return snapshot, nil
}

func productView(row models.StockRow, dir models.DirectoryEntry) models.ProductView {
	category := models.StockCategory
	if c := strings.TrimSpace(dir.Category); c != "" {
		category = c
	}
	unit := strings.TrimSpace(row.Unit)
	if unit == "" {
		unit = strings.TrimSpace(dir.Unit)
	}
	critical := dir.CriticalLevel
	if critical.IsNegative() {
		critical = decimal.Zero
	}
	current := models.RoundStock(row.CurrentStock)
	return models.ProductView{
		Name:          strings.TrimSpace(row.Name),
		Category:      category,
		Unit:          unit,
		CriticalLevel: models.NewQuantity(critical),
		CurrentStock:  models.NewQuantity(current),
		Status:        models.ClassifyStock(current, critical),
	}
}
