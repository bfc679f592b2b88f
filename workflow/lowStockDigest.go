package workflow

import (
	"context"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/stock_backend/models"
)

// DigestResult reports what the morning digest found and whether it was sent.
type DigestResult struct {
	Items []models.LowStockItem `json:"items"`
	Sent  bool                  `json:"sent"`
}

// LowStockItems lists ledger rows with a positive critical level and stock at or below it.
func LowStockItems(ctx context.Context, store interface {
	models.StockRepository
	models.DirectoryRepository
}) ([]models.LowStockItem, error) {
	stock, err := store.ListStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	directory, err := store.ListDirectory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	critical := make(map[string]models.DirectoryEntry, len(directory))
	for _, d := range directory {
		if k := d.Key(); k != "" {
			if _, dup := critical[k]; !dup {
				critical[k] = d
			}
		}
	}

	var items []models.LowStockItem
	for _, row := range stock {
		d, ok := critical[row.Key()]
		if !ok || !d.CriticalLevel.IsPositive() {
			continue
		}
		current := models.RoundStock(row.CurrentStock)
		if current.LessThanOrEqual(d.CriticalLevel) {
			items = append(items, models.LowStockItem{
				Name:          strings.TrimSpace(row.Name),
				CurrentStock:  current,
				CriticalLevel: d.CriticalLevel,
			})
		}
	}
	return items, nil
}

// LowStockDigest sends every low item in one message. Nothing low means nothing sent.
func LowStockDigest(ctx context.Context, store models.Store, notifier Notifier) (DigestResult, error) {
	items, err := LowStockItems(ctx, store)
	if err != nil {
		return DigestResult{}, err
	}
	result := DigestResult{Items: items}
	if len(items) == 0 {
		return result, nil
	}
	if err := notifier.Notify(ctx, models.DigestMessage(items)); err != nil {
		return result, err
	}
	result.Sent = true
	return result, nil
}
