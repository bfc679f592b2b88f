package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// StockDiff is one ledger row whose stored value differs from the journal replay.
type StockDiff struct {
	Name     string          `json:"name"`
	Stored   decimal.Decimal `json:"stored"`
	Computed decimal.Decimal `json:"computed"`
}

type RebuildOptions struct {
	// Apply writes computed values back under the product lock.
	Apply bool
	// Products limits the rebuild to these names (any case); empty means all.
	Products []string
}

// RebuildStock replays the whole journal from a zero baseline with the same
// rounding the live engine uses and compares the result with the ledger.
// Sales are expanded with the current recipe table. Journal rows naming
// products absent from the ledger are ignored, as they were when processed.
// Running it again after Apply reports no differences.
func RebuildStock(ctx context.Context, store models.Store, locker *KeyLocker, logger *logrus.Logger, opts RebuildOptions) ([]StockDiff, error) {
	if logger == nil {
		logger = config.GetLogger()
	}
	if locker == nil {
		locker = NewKeyLocker(nil, logger)
	}

	stock, err := store.ListStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	journal, err := store.RecentJournal(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	recipeRows, err := store.ListRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}

	only := map[string]bool{}
	for _, p := range opts.Products {
		if k := models.NormalizeName(p); k != "" {
			only[k] = true
		}
	}

	computed := make(map[string]decimal.Decimal, len(stock))
	names := make(map[string]string, len(stock))
	for _, row := range stock {
		k := row.Key()
		if k == "" {
			continue
		}
		if _, dup := computed[k]; dup {
			continue
		}
		computed[k] = decimal.Zero
		names[k] = strings.TrimSpace(row.Name)
	}

	recipes := map[string][]models.RecipeRow{}
	for _, r := range recipeRows {
		k := models.NormalizeName(r.FinishedGood)
		if k == "" || models.NormalizeName(r.Ingredient) == "" {
			continue
		}
		recipes[k] = append(recipes[k], r)
	}

	apply := func(name string, delta decimal.Decimal) {
		k := models.NormalizeName(name)
		cur, ok := computed[k]
		if !ok {
			return
		}
		computed[k] = models.RoundStock(cur.Add(delta))
	}

	for _, e := range journal {
		switch e.Kind() {
		case models.TransactionKindArrival:
			apply(e.Item, e.Quantity)
		case models.TransactionKindWriteOff:
			apply(e.Item, e.Quantity.Neg())
		case models.TransactionKindSale:
			for _, r := range recipes[models.NormalizeName(e.Item)] {
				apply(r.Ingredient, models.RoundStock(r.Amount.Mul(e.Quantity)).Neg())
			}
		}
	}

	var diffs []StockDiff
	for _, row := range stock {
		k := row.Key()
		if k == "" || (len(only) > 0 && !only[k]) {
			continue
		}
		want, ok := computed[k]
		if !ok {
			continue
		}
		if row.CurrentStock.Equal(want) {
			continue
		}
		diffs = append(diffs, StockDiff{Name: names[k], Stored: row.CurrentStock, Computed: want})
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Name < diffs[j].Name })

	if !opts.Apply {
		return diffs, nil
	}
	for _, d := range diffs {
		if err := setUnderLock(ctx, store, locker, d.Name, d.Computed); err != nil {
			return diffs, err
		}
		logger.WithFields(logrus.Fields{
			"field":    "RebuildStock",
			"product":  d.Name,
			"stored":   d.Stored.String(),
			"computed": d.Computed.String(),
		}).Info("stock rebuilt from journal")
	}
	return diffs, nil
}

func setUnderLock(ctx context.Context, store models.StockRepository, locker *KeyLocker, name string, qty decimal.Decimal) error {
	key := models.NormalizeName(name)
	unlock, err := locker.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("lock %q: %w", name, err)
	}
	defer unlock()
	if err := store.SetStock(ctx, key, qty); err != nil {
		return fmt.Errorf("set stock %q: %w", name, err)
	}
	return nil
}
