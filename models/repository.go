package models

import (
	"context"

	"github.com/shopspring/decimal"
)

// StockRepository owns the ledger. key is always NormalizeName(name).
type StockRepository interface {
	FindStock(ctx context.Context, key string) (StockRow, bool, error)
	ListStock(ctx context.Context) ([]StockRow, error)
	SetStock(ctx context.Context, key string, qty decimal.Decimal) error
	// CreateStock adds a row; returns ErrProductExists when the key is taken.
	CreateStock(ctx context.Context, row StockRow) error
}

type DirectoryRepository interface {
	ListDirectory(ctx context.Context) ([]DirectoryEntry, error)
	FindDirectory(ctx context.Context, key string) (DirectoryEntry, bool, error)
	// UpsertDirectory inserts or replaces the entry with the same key.
	UpsertDirectory(ctx context.Context, entry DirectoryEntry) error
}

type RecipeRepository interface {
	ListRecipes(ctx context.Context) ([]RecipeRow, error)
	// FindRecipe returns every row whose finished good matches key, in table order.
	FindRecipe(ctx context.Context, key string) ([]RecipeRow, error)
}

type JournalRepository interface {
	// AppendJournal stores entry and returns its assigned position.
	AppendJournal(ctx context.Context, entry JournalEntry) (int, error)
	// RecentJournal returns the last limit entries in append order; limit <= 0 returns all.
	RecentJournal(ctx context.Context, limit int) ([]JournalEntry, error)
	AppendPurchase(ctx context.Context, rec PurchaseRecord) error
	AppendSale(ctx context.Context, rec SaleRecord) error
}

type SellableRepository interface {
	// ListSellable returns the names offered on the sale form, as stored.
	ListSellable(ctx context.Context) ([]string, error)
}

type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// Store is everything a backend must provide.
type Store interface {
	StockRepository
	DirectoryRepository
	RecipeRepository
	JournalRepository
	SellableRepository
	SettingsRepository
}

const (
	SettingTelegramToken  = "Telegram Token"
	SettingTelegramChatId = "Telegram Chat ID"
)
