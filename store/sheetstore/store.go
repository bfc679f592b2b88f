// Package sheetstore keeps the ledger in a Google Spreadsheet laid out as the
// shop's original workbook: one tab per table, headers in row 1.
package sheetstore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/models"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const (
	TabStock     = "Склад"
	TabDirectory = "Довідник"
	TabJournal   = "Прихід_форми"
	TabPurchases = "Закупівлі"
	TabSales     = "Продажі"
	TabRecipes   = "Калькуляція"
	TabSettings  = "Налаштування"

	// Ledger columns: A name, B unit, E current stock.
	stockColumnCurrent = "E"
	sellableCells      = "L2:L100"

	userEntered = "USER_ENTERED"
	dateLayout  = "2006-01-02 15:04:05"
)

type Store struct {
	values        *gsheets.SpreadsheetsValuesService
	spreadsheetID string
	location      *time.Location

	mu sync.RWMutex
}

var _ models.Store = (*Store)(nil)

// New opens spreadsheetID with the given client options.
func New(ctx context.Context, spreadsheetID string, loc *time.Location, opts ...option.ClientOption) (*Store, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &Store{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		location:      loc,
	}, nil
}

// NewFromEnv reads SHEETS_SPREADSHEET_ID and SHEETS_CREDENTIALS_JSON; without
// credentials JSON it falls back to application default credentials.
func NewFromEnv(ctx context.Context) (*Store, error) {
	var opts []option.ClientOption
	if creds := strings.TrimSpace(os.Getenv("SHEETS_CREDENTIALS_JSON")); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	return New(ctx, os.Getenv("SHEETS_SPREADSHEET_ID"), config.BusinessLocation(), opts...)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
}

func (s *Store) read(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := s.values.Get(s.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *Store) write(ctx context.Context, rng string, row []interface{}) error {
	_, err := s.values.Update(s.spreadsheetID, rng, &gsheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption(userEntered).
		Context(ctx).Do()
	return err
}

// appendRow returns the sheet row number the row landed on.
func (s *Store) appendRow(ctx context.Context, rng string, row []interface{}) (int, error) {
	resp, err := s.values.Append(s.spreadsheetID, rng, &gsheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption(userEntered).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	if resp.Updates == nil {
		return 0, fmt.Errorf("append to %s: no update range returned", rng)
	}
	return rowOfRange(resp.Updates.UpdatedRange)
}

func (s *Store) date(t time.Time) string {
	return t.In(s.location).Format(dateLayout)
}

// stockRows returns ledger rows with their sheet row numbers.
func (s *Store) stockRows(ctx context.Context) ([]models.StockRow, []int, error) {
	values, err := s.read(ctx, a1(TabStock, "A2:E"))
	if err != nil {
		return nil, nil, unavailable("read stock", err)
	}
	var rows []models.StockRow
	var lines []int
	for i, v := range values {
		name := cellString(v, 0)
		if name == "" {
			continue
		}
		rows = append(rows, models.StockRow{
			Name:         name,
			Unit:         cellString(v, 1),
			CurrentStock: cellDecimal(v, 4),
		})
		lines = append(lines, i+2)
	}
	return rows, lines, nil
}

func (s *Store) FindStock(ctx context.Context, key string) (models.StockRow, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, _, err := s.stockRows(ctx)
	if err != nil {
		return models.StockRow{}, false, err
	}
	for _, r := range rows {
		if r.Key() == key {
			return r, true, nil
		}
	}
	return models.StockRow{}, false, nil
}

func (s *Store) ListStock(ctx context.Context) ([]models.StockRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, _, err := s.stockRows(ctx)
	return rows, err
}

// SetStock writes column E of the first row whose name matches key.
func (s *Store) SetStock(ctx context.Context, key string, qty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, lines, err := s.stockRows(ctx)
	if err != nil {
		return err
	}
	for i, r := range rows {
		if r.Key() != key {
			continue
		}
		cellRef := fmt.Sprintf("%s%d", stockColumnCurrent, lines[i])
		if err := s.write(ctx, a1(TabStock, cellRef), []interface{}{number(qty)}); err != nil {
			return unavailable("set stock", err)
		}
		return nil
	}
	return fmt.Errorf("set stock %q: %w", key, models.ErrProductNotFound)
}

func (s *Store) CreateStock(ctx context.Context, row models.StockRow) error {
	key := row.Key()
	if key == "" {
		return fmt.Errorf("%w: empty product name", models.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, _, err := s.stockRows(ctx)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.Key() == key {
			return fmt.Errorf("create stock %q: %w", row.Name, models.ErrProductExists)
		}
	}
	_, err = s.appendRow(ctx, a1(TabStock, "A:E"), []interface{}{
		strings.TrimSpace(row.Name), strings.TrimSpace(row.Unit), "", "", number(row.CurrentStock),
	})
	if err != nil {
		return unavailable("create stock", err)
	}
	return nil
}

// directoryRows: A category, B name, C unit, D critical level.
func (s *Store) directoryRows(ctx context.Context) ([]models.DirectoryEntry, []int, error) {
	values, err := s.read(ctx, a1(TabDirectory, "A2:D"))
	if err != nil {
		return nil, nil, unavailable("read directory", err)
	}
	var out []models.DirectoryEntry
	var lines []int
	for i, v := range values {
		name := cellString(v, 1)
		if name == "" {
			continue
		}
		out = append(out, models.DirectoryEntry{
			Category:      cellString(v, 0),
			Name:          name,
			Unit:          cellString(v, 2),
			CriticalLevel: cellDecimal(v, 3),
		})
		lines = append(lines, i+2)
	}
	return out, lines, nil
}

func (s *Store) ListDirectory(ctx context.Context) ([]models.DirectoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, _, err := s.directoryRows(ctx)
	return out, err
}

func (s *Store) FindDirectory(ctx context.Context, key string) (models.DirectoryEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, _, err := s.directoryRows(ctx)
	if err != nil {
		return models.DirectoryEntry{}, false, err
	}
	for _, e := range entries {
		if e.Key() == key {
			return e, true, nil
		}
	}
	return models.DirectoryEntry{}, false, nil
}

func (s *Store) UpsertDirectory(ctx context.Context, entry models.DirectoryEntry) error {
	key := entry.Key()
	if key == "" {
		return fmt.Errorf("%w: empty directory name", models.ErrValidation)
	}
	values := []interface{}{
		strings.TrimSpace(entry.Category), strings.TrimSpace(entry.Name), strings.TrimSpace(entry.Unit), number(entry.CriticalLevel),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, lines, err := s.directoryRows(ctx)
	if err != nil {
		return err
	}
	for i, e := range entries {
		if e.Key() == key {
			if err := s.write(ctx, a1(TabDirectory, fmt.Sprintf("A%d:D%d", lines[i], lines[i])), values); err != nil {
				return unavailable("update directory", err)
			}
			return nil
		}
	}
	if _, err := s.appendRow(ctx, a1(TabDirectory, "A:D"), values); err != nil {
		return unavailable("append directory", err)
	}
	return nil
}

// recipeRows: A finished good, B ingredient, C amount per unit, D unit.
// Rows with a non-numeric amount are skipped.
func (s *Store) recipeRows(ctx context.Context) ([]models.RecipeRow, error) {
	values, err := s.read(ctx, a1(TabRecipes, "A2:D"))
	if err != nil {
		return nil, unavailable("read recipes", err)
	}
	var out []models.RecipeRow
	for _, v := range values {
		good, ingredient := cellString(v, 0), cellString(v, 1)
		if good == "" || ingredient == "" {
			continue
		}
		amount, ok := cellDecimalStrict(v, 2)
		if !ok {
			continue
		}
		out = append(out, models.RecipeRow{FinishedGood: good, Ingredient: ingredient, Amount: amount, Unit: cellString(v, 3)})
	}
	return out, nil
}

func (s *Store) ListRecipes(ctx context.Context) ([]models.RecipeRow, error) {
	return s.recipeRows(ctx)
}

func (s *Store) FindRecipe(ctx context.Context, key string) ([]models.RecipeRow, error) {
	rows, err := s.recipeRows(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.RecipeRow
	for _, r := range rows {
		if models.NormalizeName(r.FinishedGood) == key {
			out = append(out, r)
		}
	}
	return out, nil
}

// AppendJournal writes A..G: date, item, category, quantity, price, total, type.
// Position is the data row number (sheet row - 1).
func (s *Store) AppendJournal(ctx context.Context, entry models.JournalEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, err := s.appendRow(ctx, a1(TabJournal, "A:G"), []interface{}{
		s.date(entry.Date),
		entry.Item,
		entry.Category,
		number(entry.Quantity),
		number(entry.PricePerUnit),
		number(entry.Total),
		string(entry.Type),
	})
	if err != nil {
		return 0, unavailable("append journal", err)
	}
	return line - 1, nil
}

// RecentJournal keeps rows with a date and an item, then takes the last limit.
func (s *Store) RecentJournal(ctx context.Context, limit int) ([]models.JournalEntry, error) {
	s.mu.RLock()
	values, err := s.read(ctx, a1(TabJournal, "A2:G"))
	s.mu.RUnlock()
	if err != nil {
		return nil, unavailable("read journal", err)
	}
	var out []models.JournalEntry
	for i, v := range values {
		if cellString(v, 0) == "" || cellString(v, 1) == "" {
			continue
		}
		out = append(out, models.JournalEntry{
			Position:     i + 1,
			Date:         cellTime(v, 0, s.location),
			Item:         cellString(v, 1),
			Category:     cellString(v, 2),
			Quantity:     cellDecimal(v, 3),
			PricePerUnit: cellDecimal(v, 4),
			Total:        cellDecimal(v, 5),
			Type:         models.TransactionKind(cellString(v, 6)),
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// AppendPurchase writes date, category, item, quantity, unit, price, total.
func (s *Store) AppendPurchase(ctx context.Context, rec models.PurchaseRecord) error {
	_, err := s.appendRow(ctx, a1(TabPurchases, "A:G"), []interface{}{
		s.date(rec.Date), rec.Category, rec.Item, number(rec.Quantity), rec.Unit, number(rec.PricePerUnit), number(rec.Total),
	})
	if err != nil {
		return unavailable("append purchase", err)
	}
	return nil
}

// AppendSale writes date, time, item, quantity, price, total.
func (s *Store) AppendSale(ctx context.Context, rec models.SaleRecord) error {
	_, err := s.appendRow(ctx, a1(TabSales, "A:F"), []interface{}{
		s.date(rec.Date), rec.Time, rec.Item, number(rec.Quantity), number(rec.Price), number(rec.Total),
	})
	if err != nil {
		return unavailable("append sale", err)
	}
	return nil
}

func (s *Store) ListSellable(ctx context.Context) ([]string, error) {
	values, err := s.read(ctx, a1(TabJournal, sellableCells))
	if err != nil {
		return nil, unavailable("read sellable products", err)
	}
	var out []string
	for _, v := range values {
		if name := cellString(v, 0); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// GetSetting looks key up in column A of the settings tab; the value is column B.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	values, err := s.read(ctx, a1(TabSettings, "A:B"))
	if err != nil {
		return "", false, unavailable("read settings", err)
	}
	for _, v := range values {
		if cellString(v, 0) == key {
			return cellString(v, 1), true, nil
		}
	}
	return "", false, nil
}
