package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/models"
	"bitbucket.org/mmdatafocus/stock_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AlertSink receives low-stock events after the ledger write is done.
// Publish must not block the caller.
type AlertSink interface {
	Publish(ctx context.Context, ev models.AlertEvent)
}

// LedgerStore is the subset of models.Store the engine touches.
type LedgerStore interface {
	models.StockRepository
	models.DirectoryRepository
	models.RecipeRepository
}

type StockEngine struct {
	store  LedgerStore
	locker *KeyLocker
	alerts AlertSink
	logger *logrus.Logger
	now    func() time.Time
}

func NewStockEngine(store LedgerStore, locker *KeyLocker, alerts AlertSink, logger *logrus.Logger) *StockEngine {
	if logger == nil {
		logger = config.GetLogger()
	}
	if locker == nil {
		locker = NewKeyLocker(nil, logger)
	}
	return &StockEngine{
		store:  store,
		locker: locker,
		alerts: alerts,
		logger: logger,
		now:    time.Now,
	}
}

// UpdateStock adds delta to the product's ledger row and rounds the result to 3 dp.
// Returns false (and no error) when no row matches the name.
func (e *StockEngine) UpdateStock(ctx context.Context, productName string, delta decimal.Decimal) (bool, error) {
	key := models.NormalizeName(productName)
	if key == "" {
		return false, nil
	}

	ev, found, err := e.applyDelta(ctx, key, productName, delta)
	if err != nil {
		stockUpdatesTotal.WithLabelValues("error").Inc()
		return false, err
	}
	if !found {
		stockUpdatesTotal.WithLabelValues("not_found").Inc()
		config.LogWarn(e.logger, "stockUpdate.go", "UpdateStock", "product not found in stock ledger", map[string]any{
			"product": productName,
			"delta":   delta.String(),
		})
		return false, nil
	}
	stockUpdatesTotal.WithLabelValues("applied").Inc()

	// Lock already released; delivery never holds the product key.
	if ev != nil && e.alerts != nil {
		e.alerts.Publish(ctx, *ev)
	}
	return true, nil
}

func (e *StockEngine) applyDelta(ctx context.Context, key, productName string, delta decimal.Decimal) (*models.AlertEvent, bool, error) {
	unlock, err := e.locker.Lock(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("lock %q: %w", productName, err)
	}
	defer unlock()

	row, ok, err := e.store.FindStock(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("find stock %q: %w", productName, err)
	}
	if !ok {
		return nil, false, nil
	}

	current := row.CurrentStock
	newStock := models.RoundStock(current.Add(delta))
	if err := e.store.SetStock(ctx, key, newStock); err != nil {
		return nil, true, fmt.Errorf("set stock %q: %w", productName, err)
	}

	critical, err := e.criticalLevel(ctx, key)
	if err != nil {
		config.LogError(e.logger, "stockUpdate.go", "applyDelta", "read critical level", productName, err)
		return nil, true, nil
	}
	if !models.CrossesCriticalLevel(current, newStock, critical) {
		return nil, true, nil
	}

	name := strings.TrimSpace(productName)
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	return &models.AlertEvent{
		ProductName:   name,
		PreviousStock: current,
		NewStock:      newStock,
		CriticalLevel: critical,
		OccurredAt:    e.now(),
		CorrelationId: cid,
	}, true, nil
}

// criticalLevel reads the directory threshold; absent entries mean 0.
func (e *StockEngine) criticalLevel(ctx context.Context, key string) (decimal.Decimal, error) {
	entry, ok, err := e.store.FindDirectory(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, nil
	}
	return entry.CriticalLevel, nil
}
