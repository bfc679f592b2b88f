package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/stock_backend/models"
	"github.com/shopspring/decimal"
)

// SyncDirectory creates a zero-stock ledger row for every directory name the ledger lacks.
// Returns the names created. Running it twice creates nothing the second time.
func SyncDirectory(ctx context.Context, store interface {
	models.StockRepository
	models.DirectoryRepository
}) ([]string, error) {
	directory, err := store.ListDirectory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}

	var created []string
	for _, d := range directory {
		key := d.Key()
		if key == "" {
			continue
		}
		if _, ok, err := store.FindStock(ctx, key); err != nil {
			return created, fmt.Errorf("find stock %q: %w", d.Name, err)
		} else if ok {
			continue
		}
		err := store.CreateStock(ctx, models.StockRow{
			Name:         strings.TrimSpace(d.Name),
			Unit:         strings.TrimSpace(d.Unit),
			CurrentStock: decimal.Zero,
		})
		if errors.Is(err, models.ErrProductExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("create stock %q: %w", d.Name, err)
		}
		created = append(created, strings.TrimSpace(d.Name))
	}
	return created, nil
}

// CreateProduct registers a custom product in the ledger and the directory.
func CreateProduct(ctx context.Context, store interface {
	models.StockRepository
	models.DirectoryRepository
}, input *models.NewProduct) (models.StockRow, error) {
	row, dir, err := input.Rows()
	if err != nil {
		return models.StockRow{}, err
	}
	if err := store.CreateStock(ctx, row); err != nil {
		return models.StockRow{}, err
	}
	if err := store.UpsertDirectory(ctx, dir); err != nil {
		return row, fmt.Errorf("ledger row created but directory update failed: %w", err)
	}
	return row, nil
}
