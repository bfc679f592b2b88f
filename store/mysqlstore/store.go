// Package mysqlstore keeps the ledger, directory, recipes and logs in MySQL through gorm.
package mysqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/models"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

var _ models.Store = (*Store)(nil)

// New uses db, or the shared config connection when db is nil.
func New(db *gorm.DB) *Store {
	if db == nil {
		db = config.GetDB()
	}
	return &Store{db: db}
}

// MigrateTable creates or updates every table the store uses.
func MigrateTable(db *gorm.DB) error {
	if db == nil {
		db = config.GetDB()
	}
	return db.AutoMigrate(
		&StockItem{}, &DirectoryItem{}, &RecipeLine{},
		&JournalRow{}, &PurchaseRow{}, &SaleRow{},
		&SellableProduct{}, &Setting{},
	)
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
}

func (s *Store) FindStock(ctx context.Context, key string) (models.StockRow, bool, error) {
	var item StockItem
	err := s.db.WithContext(ctx).Where("name_key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.StockRow{}, false, nil
	}
	if err != nil {
		return models.StockRow{}, false, unavailable("find stock", err)
	}
	return item.row(), true, nil
}

func (s *Store) ListStock(ctx context.Context) ([]models.StockRow, error) {
	var items []StockItem
	if err := s.db.WithContext(ctx).Order("id").Find(&items).Error; err != nil {
		return nil, unavailable("list stock", err)
	}
	rows := make([]models.StockRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, it.row())
	}
	return rows, nil
}

func (s *Store) SetStock(ctx context.Context, key string, qty decimal.Decimal) error {
	result := s.db.WithContext(ctx).Model(&StockItem{}).Where("name_key = ?", key).Update("current_stock", qty)
	if result.Error != nil {
		return unavailable("set stock", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	// MySQL reports 0 affected rows when the value is unchanged.
	var count int64
	if err := s.db.WithContext(ctx).Model(&StockItem{}).Where("name_key = ?", key).Count(&count).Error; err != nil {
		return unavailable("set stock", err)
	}
	if count == 0 {
		return fmt.Errorf("set stock %q: %w", key, models.ErrProductNotFound)
	}
	return nil
}

func (s *Store) CreateStock(ctx context.Context, row models.StockRow) error {
	key := row.Key()
	if key == "" {
		return fmt.Errorf("%w: empty product name", models.ErrValidation)
	}
	item := StockItem{
		NameKey:      key,
		Name:         strings.TrimSpace(row.Name),
		Unit:         strings.TrimSpace(row.Unit),
		CurrentStock: row.CurrentStock,
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return fmt.Errorf("create stock %q: %w", row.Name, models.ErrProductExists)
		}
		return unavailable("create stock", err)
	}
	return nil
}

func (s *Store) ListDirectory(ctx context.Context) ([]models.DirectoryEntry, error) {
	var items []DirectoryItem
	if err := s.db.WithContext(ctx).Order("id").Find(&items).Error; err != nil {
		return nil, unavailable("list directory", err)
	}
	out := make([]models.DirectoryEntry, 0, len(items))
	for _, it := range items {
		out = append(out, it.entry())
	}
	return out, nil
}

func (s *Store) FindDirectory(ctx context.Context, key string) (models.DirectoryEntry, bool, error) {
	var item DirectoryItem
	err := s.db.WithContext(ctx).Where("name_key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DirectoryEntry{}, false, nil
	}
	if err != nil {
		return models.DirectoryEntry{}, false, unavailable("find directory", err)
	}
	return item.entry(), true, nil
}

func (s *Store) UpsertDirectory(ctx context.Context, entry models.DirectoryEntry) error {
	key := entry.Key()
	if key == "" {
		return fmt.Errorf("%w: empty directory name", models.ErrValidation)
	}
	item := DirectoryItem{
		NameKey:       key,
		Category:      strings.TrimSpace(entry.Category),
		Name:          strings.TrimSpace(entry.Name),
		Unit:          strings.TrimSpace(entry.Unit),
		CriticalLevel: entry.CriticalLevel,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "name", "unit", "critical_level", "updated_at"}),
	}).Create(&item).Error
	if err != nil {
		return unavailable("upsert directory", err)
	}
	return nil
}

func (s *Store) ListRecipes(ctx context.Context) ([]models.RecipeRow, error) {
	var lines []RecipeLine
	if err := s.db.WithContext(ctx).Order("id").Find(&lines).Error; err != nil {
		return nil, unavailable("list recipes", err)
	}
	out := make([]models.RecipeRow, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.row())
	}
	return out, nil
}

func (s *Store) FindRecipe(ctx context.Context, key string) ([]models.RecipeRow, error) {
	var lines []RecipeLine
	if err := s.db.WithContext(ctx).Where("finished_good_key = ?", key).Order("id").Find(&lines).Error; err != nil {
		return nil, unavailable("find recipe", err)
	}
	out := make([]models.RecipeRow, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.row())
	}
	return out, nil
}

// AddRecipeLine appends one ingredient row to a finished good's recipe.
func (s *Store) AddRecipeLine(ctx context.Context, row models.RecipeRow) error {
	line := RecipeLine{
		FinishedGoodKey: models.NormalizeName(row.FinishedGood),
		FinishedGood:    strings.TrimSpace(row.FinishedGood),
		Ingredient:      strings.TrimSpace(row.Ingredient),
		Amount:          row.Amount,
		Unit:            strings.TrimSpace(row.Unit),
	}
	if line.FinishedGoodKey == "" || line.Ingredient == "" {
		return fmt.Errorf("%w: recipe line needs a finished good and an ingredient", models.ErrValidation)
	}
	if err := s.db.WithContext(ctx).Create(&line).Error; err != nil {
		return unavailable("add recipe line", err)
	}
	return nil
}

func (s *Store) AppendJournal(ctx context.Context, entry models.JournalEntry) (int, error) {
	row := JournalRow{
		Date:         entry.Date,
		Item:         entry.Item,
		Category:     entry.Category,
		Quantity:     entry.Quantity,
		PricePerUnit: entry.PricePerUnit,
		Total:        entry.Total,
		Type:         string(entry.Type),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, unavailable("append journal", err)
	}
	return row.ID, nil
}

func (s *Store) RecentJournal(ctx context.Context, limit int) ([]models.JournalEntry, error) {
	var rows []JournalRow
	q := s.db.WithContext(ctx).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, unavailable("read journal", err)
	}
	out := make([]models.JournalEntry, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r.entry()
	}
	return out, nil
}

func (s *Store) AppendPurchase(ctx context.Context, rec models.PurchaseRecord) error {
	row := PurchaseRow{
		Date:         rec.Date,
		Category:     rec.Category,
		Item:         rec.Item,
		Quantity:     rec.Quantity,
		Unit:         rec.Unit,
		PricePerUnit: rec.PricePerUnit,
		Total:        rec.Total,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return unavailable("append purchase", err)
	}
	return nil
}

func (s *Store) AppendSale(ctx context.Context, rec models.SaleRecord) error {
	row := SaleRow{
		Date:     rec.Date,
		Time:     rec.Time,
		Item:     rec.Item,
		Quantity: rec.Quantity,
		Price:    rec.Price,
		Total:    rec.Total,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return unavailable("append sale", err)
	}
	return nil
}

func (s *Store) ListSellable(ctx context.Context) ([]string, error) {
	var rows []SellableProduct
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, unavailable("list sellable products", err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out, nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var setting Setting
	err := s.db.WithContext(ctx).Where("`key` = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get setting", err)
	}
	return setting.Value, true, nil
}

// PutSetting inserts or replaces a settings row.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		UpdateAll: true,
	}).Create(&Setting{Key: key, Value: value}).Error
	if err != nil {
		return unavailable("put setting", err)
	}
	return nil
}

// AddSellable appends a name to the sale form list.
func (s *Store) AddSellable(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty sellable name", models.ErrValidation)
	}
	if err := s.db.WithContext(ctx).Create(&SellableProduct{Name: name}).Error; err != nil {
		return unavailable("add sellable", err)
	}
	return nil
}
