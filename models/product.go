package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// StockRow is one line of the stock ledger (the "Склад" table).
type StockRow struct {
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	CurrentStock decimal.Decimal `json:"current_stock"`
}

func (r StockRow) Key() string { return NormalizeName(r.Name) }

// DirectoryEntry carries category, unit and critical level per product ("Довідник").
// CriticalLevel 0 still alerts when stock runs out; only the digest and the
// low-stock list skip such products.
type DirectoryEntry struct {
	Category      string          `json:"category"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	CriticalLevel decimal.Decimal `json:"critical_level"`
}

func (d DirectoryEntry) Key() string { return NormalizeName(d.Name) }

const (
	DefaultDirectoryCategory = "Інше"
	StockCategory            = "Запас"
	SellableUnit             = "шт"
)

// NewProduct registers a product in both the ledger and the directory.
type NewProduct struct {
	Name          string        `json:"name" validate:"required,max=200"`
	Unit          string        `json:"unit" validate:"max=50"`
	Category      string        `json:"category" validate:"max=100"`
	CriticalLevel *LooseDecimal `json:"criticalLevel"`
	InitialStock  *LooseDecimal `json:"initialStock"`
}

// Rows validates the input and returns the ledger and directory rows to create.
func (input *NewProduct) Rows() (StockRow, DirectoryEntry, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Unit = strings.TrimSpace(input.Unit)
	input.Category = strings.TrimSpace(input.Category)
	if err := validate.Struct(input); err != nil {
		return StockRow{}, DirectoryEntry{}, fmt.Errorf("%w: %s", ErrValidation, describeValidation(err))
	}

	critical, initial := decimal.Zero, decimal.Zero
	if input.CriticalLevel != nil {
		if input.CriticalLevel.IsNegative() {
			return StockRow{}, DirectoryEntry{}, fmt.Errorf("%w: criticalLevel must not be negative", ErrValidation)
		}
		critical = input.CriticalLevel.Decimal
	}
	if input.InitialStock != nil {
		initial = RoundStock(input.InitialStock.Decimal)
	}
	category := input.Category
	if category == "" {
		category = DefaultDirectoryCategory
	}

	stock := StockRow{
		Name:         input.Name,
		Unit:         input.Unit,
		CurrentStock: initial,
	}
	dir := DirectoryEntry{
		Category:      category,
		Name:          input.Name,
		Unit:          input.Unit,
		CriticalLevel: critical,
	}
	return stock, dir, nil
}
