package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus buckets a product by stock / critical level.
type StockStatus string

const (
	StockStatusCritical    StockStatus = "critical"
	StockStatusWarningHigh StockStatus = "warning-high"
	StockStatusWarning     StockStatus = "warning"
	StockStatusNormal      StockStatus = "normal"
)

var (
	warningHighRatio = decimal.RequireFromString("1.5")
	warningRatio     = decimal.NewFromInt(2)
)

// ClassifyStock: at or below critical is critical, up to 1.5x is warning-high,
// up to 2x is warning. Products without a critical level are normal unless overdrawn.
func ClassifyStock(stock, critical decimal.Decimal) StockStatus {
	if !critical.IsPositive() {
		if stock.IsNegative() {
			return StockStatusCritical
		}
		return StockStatusNormal
	}
	switch {
	case stock.LessThanOrEqual(critical):
		return StockStatusCritical
	case stock.LessThanOrEqual(critical.Mul(warningHighRatio)):
		return StockStatusWarningHigh
	case stock.LessThanOrEqual(critical.Mul(warningRatio)):
		return StockStatusWarning
	default:
		return StockStatusNormal
	}
}

type ProductView struct {
	Name          string      `json:"name"`
	Category      string      `json:"category"`
	Unit          string      `json:"unit"`
	CriticalLevel Quantity    `json:"criticalLevel"`
	CurrentStock  Quantity    `json:"currentStock"`
	Status        StockStatus `json:"status"`
}

type DirectoryView struct {
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Unit          string   `json:"unit"`
	CriticalLevel Quantity `json:"criticalLevel"`
}

type TransactionView struct {
	Id           string    `json:"id"`
	Date         time.Time `json:"date"`
	Item         string    `json:"item"`
	ProductName  string    `json:"productName"`
	Category     string    `json:"category"`
	Quantity     Quantity  `json:"quantity"`
	Unit         string    `json:"unit"`
	Type         string    `json:"type"`
	PricePerUnit Money     `json:"pricePerUnit"`
	Total        Money     `json:"total"`
}

type SalesProductView struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

type RecipeIngredientView struct {
	Ingredient string   `json:"ingredient"`
	Amount     Quantity `json:"amount"`
	Unit       string   `json:"unit"`
}

type RecipeView struct {
	Name        string                 `json:"name"`
	Ingredients []RecipeIngredientView `json:"ingredients"`
}

// InventorySnapshot is the read model served by GET /?action=getInventory.
type InventorySnapshot struct {
	Products      []ProductView      `json:"products"`
	Directory     []DirectoryView    `json:"directory"`
	Transactions  []TransactionView  `json:"transactions"`
	SalesProducts []SalesProductView `json:"salesProducts"`
	Recipes       []RecipeView       `json:"recipes"`
	LowStock      []ProductView      `json:"lowStock"`
	GeneratedAt   time.Time          `json:"generatedAt"`
}

// JournalUnit is shown for journal rows, which carry no unit column.
const JournalUnit = "од"

func TransactionViewFor(e JournalEntry) TransactionView {
	typ := string(e.Type)
	if typ == "" {
		typ = string(TransactionKindArrival)
	}
	return TransactionView{
		Id:           fmt.Sprintf("tx-%d", e.Position),
		Date:         e.Date,
		Item:         e.Item,
		ProductName:  e.Item,
		Category:     e.Category,
		Quantity:     NewQuantity(e.Quantity),
		Unit:         JournalUnit,
		Type:         typ,
		PricePerUnit: NewMoney(e.PricePerUnit),
		Total:        NewMoney(e.Total),
	}
}
