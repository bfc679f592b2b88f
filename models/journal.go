package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry is one append-only row of the transactions journal ("Прихід_форми").
// Position is the 1-based row index assigned by the store.
type JournalEntry struct {
	Position     int             `json:"position"`
	Date         time.Time       `json:"date"`
	Item         string          `json:"item"`
	Category     string          `json:"category"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Total        decimal.Decimal `json:"total"`
	Type         TransactionKind `json:"type"`
}

// Kind re-classifies the stored label; rows written by hand may carry any text.
func (e JournalEntry) Kind() TransactionKind {
	return ClassifyTransactionKind(string(e.Type))
}

// PurchaseRecord is a row of the purchases log ("Закупівлі").
type PurchaseRecord struct {
	Date         time.Time       `json:"date"`
	Category     string          `json:"category"`
	Item         string          `json:"item"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Total        decimal.Decimal `json:"total"`
}

// SaleRecord is a row of the sales log ("Продажі"). Time is HH:mm:ss in the business timezone.
type SaleRecord struct {
	Date     time.Time       `json:"date"`
	Time     string          `json:"time"`
	Item     string          `json:"item"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

func PurchaseRecordFor(a Arrival) PurchaseRecord {
	return PurchaseRecord{
		Date:         a.Date,
		Category:     a.Category,
		Item:         a.Item,
		Quantity:     a.Quantity,
		Unit:         a.Unit,
		PricePerUnit: a.PricePerUnit,
		Total:        a.Total,
	}
}

func SaleRecordFor(s Sale, loc *time.Location) SaleRecord {
	return SaleRecord{
		Date:     s.Date,
		Time:     s.Date.In(loc).Format("15:04:05"),
		Item:     s.Item,
		Quantity: s.Quantity,
		Price:    s.PricePerUnit,
		Total:    s.Total,
	}
}
