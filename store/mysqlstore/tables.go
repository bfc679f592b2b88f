package mysqlstore

import (
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/models"
	"github.com/shopspring/decimal"
)

// StockItem is a ledger row. NameKey is models.NormalizeName(Name).
type StockItem struct {
	ID           int             `gorm:"primary_key" json:"id"`
	NameKey      string          `gorm:"size:200;uniqueIndex;not null" json:"-"`
	Name         string          `gorm:"size:200;not null" json:"name"`
	Unit         string          `gorm:"size:50" json:"unit"`
	CurrentStock decimal.Decimal `gorm:"type:decimal(20,3);default:0;not null" json:"current_stock"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StockItem) TableName() string { return "stock_items" }

func (s StockItem) row() models.StockRow {
	return models.StockRow{Name: s.Name, Unit: s.Unit, CurrentStock: s.CurrentStock}
}

type DirectoryItem struct {
	ID            int             `gorm:"primary_key" json:"id"`
	NameKey       string          `gorm:"size:200;uniqueIndex;not null" json:"-"`
	Category      string          `gorm:"size:100" json:"category"`
	Name          string          `gorm:"size:200;not null" json:"name"`
	Unit          string          `gorm:"size:50" json:"unit"`
	CriticalLevel decimal.Decimal `gorm:"type:decimal(20,3);default:0;not null" json:"critical_level"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DirectoryItem) TableName() string { return "directory_items" }

func (d DirectoryItem) entry() models.DirectoryEntry {
	return models.DirectoryEntry{Category: d.Category, Name: d.Name, Unit: d.Unit, CriticalLevel: d.CriticalLevel}
}

// RecipeLine keeps table order through its auto-increment ID.
type RecipeLine struct {
	ID              int             `gorm:"primary_key" json:"id"`
	FinishedGoodKey string          `gorm:"size:200;index;not null" json:"-"`
	FinishedGood    string          `gorm:"size:200;not null" json:"finished_good"`
	Ingredient      string          `gorm:"size:200;not null" json:"ingredient"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,6);default:0;not null" json:"amount"`
	Unit            string          `gorm:"size:50" json:"unit"`
}

func (RecipeLine) TableName() string { return "recipe_lines" }

func (r RecipeLine) row() models.RecipeRow {
	return models.RecipeRow{FinishedGood: r.FinishedGood, Ingredient: r.Ingredient, Amount: r.Amount, Unit: r.Unit}
}

// JournalRow is the append-only transactions journal; ID is the position.
type JournalRow struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Date         time.Time       `gorm:"index;not null" json:"date"`
	Item         string          `gorm:"size:200;not null" json:"item"`
	Category     string          `gorm:"size:100" json:"category"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,3);default:0;not null" json:"quantity"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(20,2);default:0;not null" json:"price_per_unit"`
	Total        decimal.Decimal `gorm:"type:decimal(20,2);default:0;not null" json:"total"`
	Type         string          `gorm:"size:50" json:"type"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (JournalRow) TableName() string { return "journal_rows" }

func (j JournalRow) entry() models.JournalEntry {
	return models.JournalEntry{
		Position:     j.ID,
		Date:         j.Date,
		Item:         j.Item,
		Category:     j.Category,
		Quantity:     j.Quantity,
		PricePerUnit: j.PricePerUnit,
		Total:        j.Total,
		Type:         models.TransactionKind(j.Type),
	}
}

type PurchaseRow struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Date         time.Time       `gorm:"index;not null" json:"date"`
	Category     string          `gorm:"size:100" json:"category"`
	Item         string          `gorm:"size:200;not null" json:"item"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,3);default:0;not null" json:"quantity"`
	Unit         string          `gorm:"size:50" json:"unit"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(20,2);default:0;not null" json:"price_per_unit"`
	Total        decimal.Decimal `gorm:"type:decimal(20,2);default:0;not null" json:"total"`
}

func (PurchaseRow) TableName() string { return "purchase_rows" }

type SaleRow struct {
	ID       int             `gorm:"primary_key" json:"id"`
	Date     time.Time       `gorm:"index;not null" json:"date"`
	Time     string          `gorm:"size:8" json:"time"`
	Item     string          `gorm:"size:200;not null" json:"item"`
	Quantity decimal.Decimal `gorm:"type:decimal(20,3);default:0;not null" json:"quantity"`
	Price    decimal.Decimal `gorm:"type:decimal(20,2);default:0;not null" json:"price"`
	Total    decimal.Decimal `gorm:"type:decimal(20,2);default:0;not null" json:"total"`
}

func (SaleRow) TableName() string { return "sale_rows" }

type SellableProduct struct {
	ID   int    `gorm:"primary_key" json:"id"`
	Name string `gorm:"size:200;not null" json:"name"`
}

func (SellableProduct) TableName() string { return "sellable_products" }

type Setting struct {
	Key   string `gorm:"primary_key;size:100" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

func (Setting) TableName() string { return "settings" }
