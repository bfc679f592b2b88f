package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the canonical journal label of a transaction.
type TransactionKind string

const (
	TransactionKindArrival  TransactionKind = "Прихід"
	TransactionKindSale     TransactionKind = "Продаж"
	TransactionKindWriteOff TransactionKind = "Списання"
)

// FinishedGoodsCategory is forced onto every sale's journal row.
const FinishedGoodsCategory = "готовий товар"

// ClassifyTransactionKind maps a submitted type to its kind.
// Sale and arrival are recognized by label (Ukrainian or English, any case);
// everything else, empty included, is a write-off.
func ClassifyTransactionKind(raw string) TransactionKind {
	switch NormalizeName(raw) {
	case NormalizeName(string(TransactionKindSale)), "sale":
		return TransactionKindSale
	case NormalizeName(string(TransactionKindArrival)), "arrival", "purchase":
		return TransactionKindArrival
	default:
		return TransactionKindWriteOff
	}
}

// TransactionLine holds the fields shared by every transaction kind.
type TransactionLine struct {
	Item         string
	Category     string
	Unit         string
	Quantity     decimal.Decimal
	PricePerUnit decimal.Decimal
	Total        decimal.Decimal
	Date         time.Time
}

// Transaction is one of Arrival, Sale or WriteOff.
type Transaction interface {
	Kind() TransactionKind
	Line() TransactionLine
}

// Arrival adds Quantity to the item's stock.
type Arrival struct{ TransactionLine }

// Sale leaves the item's own stock untouched and writes off its recipe ingredients.
type Sale struct{ TransactionLine }

// WriteOff subtracts Quantity from the item's stock.
type WriteOff struct{ TransactionLine }

func (Arrival) Kind() TransactionKind  { return TransactionKindArrival }
func (Sale) Kind() TransactionKind     { return TransactionKindSale }
func (WriteOff) Kind() TransactionKind { return TransactionKindWriteOff }

func (a Arrival) Line() TransactionLine  { return a.TransactionLine }
func (s Sale) Line() TransactionLine     { return s.TransactionLine }
func (w WriteOff) Line() TransactionLine { return w.TransactionLine }

// JournalEntryFor builds the append-only journal row for a transaction.
func JournalEntryFor(tx Transaction) JournalEntry {
	l := tx.Line()
	category := l.Category
	if tx.Kind() == TransactionKindSale {
		category = FinishedGoodsCategory
	}
	return JournalEntry{
		Date:         l.Date,
		Item:         l.Item,
		Category:     category,
		Quantity:     l.Quantity,
		PricePerUnit: l.PricePerUnit,
		Total:        l.Total,
		Type:         tx.Kind(),
	}
}

// NewTransaction is the submitted payload of POST /.
type NewTransaction struct {
	Type         string        `json:"type" validate:"max=50"`
	Item         string        `json:"item" validate:"required,max=200"`
	Category     string        `json:"category" validate:"max=100"`
	Unit         string        `json:"unit" validate:"max=50"`
	Quantity     *LooseDecimal `json:"quantity" validate:"required"`
	PricePerUnit *LooseDecimal `json:"pricePerUnit"`
	Total        *LooseDecimal `json:"total"`
	Date         string        `json:"date"`
}

var acceptedDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
}

// ParseTransactionDate accepts ISO-8601 and dd.mm.yyyy forms. Dates without a
// zone are read in loc. An empty string returns now.
func ParseTransactionDate(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return now.In(loc), nil
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// Parse validates the payload and classifies it.
func (input *NewTransaction) Parse(now time.Time, loc *time.Location) (Transaction, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: empty transaction", ErrValidation)
	}
	input.Item = strings.TrimSpace(input.Item)
	input.Category = strings.TrimSpace(input.Category)
	input.Unit = strings.TrimSpace(input.Unit)
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, describeValidation(err))
	}
	if input.Quantity.IsNegative() {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	}
	date, err := ParseTransactionDate(input.Date, now, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	line := TransactionLine{
		Item:     input.Item,
		Category: input.Category,
		Unit:     input.Unit,
		Quantity: input.Quantity.Decimal,
		Date:     date,
	}
	if input.PricePerUnit != nil {
		line.PricePerUnit = input.PricePerUnit.Decimal
	}
	if input.Total != nil {
		line.Total = input.Total.Decimal
	} else if input.PricePerUnit != nil {
		line.Total = RoundMoney(line.Quantity.Mul(line.PricePerUnit))
	}

	switch ClassifyTransactionKind(input.Type) {
	case TransactionKindSale:
		return Sale{line}, nil
	case TransactionKindArrival:
		return Arrival{line}, nil
	default:
		return WriteOff{line}, nil
	}
}

// ProcessResult is the envelope returned for POST /.
type ProcessResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
