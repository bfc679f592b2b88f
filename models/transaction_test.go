package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		a, b string
		same bool
	}{
		{"  Банан ", "банан", true},
		{"Молоко", "МОЛОКО", true},
		{"Молоко 2.5%", "Молоко", false},
		// precomposed й vs и + combining breve
		{"\u0439огурт", "\u0438\u0306огурт", true},
		{"", "", false},
	}
	for _, tc := range cases {
		if got := SameName(tc.a, tc.b); got != tc.same {
			t.Fatalf("SameName(%q, %q) expected %v, got %v", tc.a, tc.b, tc.same, got)
		}
	}
}

func TestClassifyTransactionKind(t *testing.T) {
	cases := map[string]TransactionKind{
		"Продаж":   TransactionKindSale,
		"продаж":   TransactionKindSale,
		"sale":     TransactionKindSale,
		"Прихід":   TransactionKindArrival,
		" ARRIVAL": TransactionKindArrival,
		"Списання": TransactionKindWriteOff,
		"writeoff": TransactionKindWriteOff,
		"":         TransactionKindWriteOff,
		"Бій":      TransactionKindWriteOff,
	}
	for in, want := range cases {
		if got := ClassifyTransactionKind(in); got != want {
			t.Fatalf("ClassifyTransactionKind(%q) expected %s, got %s", in, want, got)
		}
	}
}

func parseJSONTransaction(t *testing.T, body string) *NewTransaction {
	t.Helper()
	var input NewTransaction
	if err := json.Unmarshal([]byte(body), &input); err != nil {
		t.Fatalf("unmarshal %s: %v", body, err)
	}
	return &input
}

func TestNewTransactionParse_Validation(t *testing.T) {
	kyiv, _ := time.LoadLocation("Europe/Kyiv")
	if kyiv == nil {
		kyiv = time.UTC
	}
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	invalid := []string{
		`{"type":"Прихід","item":"   ","quantity":1}`,
		`{"type":"Прихід","item":"Молоко"}`,
		`{"type":"Прихід","item":"Молоко","quantity":null}`,
		`{"type":"Прихід","item":"Молоко","quantity":-1}`,
		`{"type":"Прихід","item":"Молоко","quantity":1,"date":"yesterday"}`,
	}
	for _, body := range invalid {
		_, err := parseJSONTransaction(t, body).Parse(now, kyiv)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", body, err)
		}
	}

	tx, err := parseJSONTransaction(t, `{"type":"Продаж","item":" Лимонад ","category":"напої","quantity":"2","pricePerUnit":50}`).Parse(now, kyiv)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sale, ok := tx.(Sale)
	if !ok {
		t.Fatalf("expected Sale, got %T", tx)
	}
	if sale.Item != "Лимонад" {
		t.Fatalf("expected trimmed item, got %q", sale.Item)
	}
	if !sale.Total.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected total 100, got %s", sale.Total)
	}
	if !sale.Date.Equal(now) {
		t.Fatalf("missing date should default to now, got %s", sale.Date)
	}
	entry := JournalEntryFor(tx)
	if entry.Category != FinishedGoodsCategory || entry.Type != TransactionKindSale {
		t.Fatalf("unexpected journal entry %+v", entry)
	}

	tx, err = parseJSONTransaction(t, `{"type":"Бій","item":"Яйця","quantity":0,"date":"2026-02-28"}`).Parse(now, kyiv)
	if err != nil {
		t.Fatalf("zero quantity must be accepted: %v", err)
	}
	if tx.Kind() != TransactionKindWriteOff {
		t.Fatalf("expected write-off, got %s", tx.Kind())
	}
	if got := tx.Line().Date.Format("2006-01-02"); got != "2026-02-28" {
		t.Fatalf("expected date 2026-02-28, got %s", got)
	}
}

func TestSaleRecordTimeUsesBusinessZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	s := Sale{TransactionLine{Item: "Лимонад", Date: time.Date(2026, 3, 1, 7, 5, 9, 0, time.UTC)}}
	if got := SaleRecordFor(s, loc).Time; got != "09:05:09" {
		t.Fatalf("expected 09:05:09, got %s", got)
	}
}

func TestCrossesCriticalLevel(t *testing.T) {
	d := decimal.RequireFromString
	cases := []struct {
		prev, next, critical string
		want                 bool
	}{
		{"10", "7", "5", false},
		{"7", "4", "5", true},
		{"6", "5", "5", true},
		{"5", "4", "5", false},
		{"4", "3", "5", false},
		{"10", "0", "0", true},
		{"10", "-1", "0", true},
		{"0", "-1", "0", false},
		{"-1", "-2", "0", false},
	}
	for _, tc := range cases {
		if got := CrossesCriticalLevel(d(tc.prev), d(tc.next), d(tc.critical)); got != tc.want {
			t.Fatalf("CrossesCriticalLevel(%s, %s, %s) expected %v", tc.prev, tc.next, tc.critical, tc.want)
		}
	}
}

func TestClassifyStock(t *testing.T) {
	d := decimal.RequireFromString
	cases := []struct {
		stock, critical string
		want            StockStatus
	}{
		{"5", "5", StockStatusCritical},
		{"7.5", "5", StockStatusWarningHigh},
		{"10", "5", StockStatusWarning},
		{"10.001", "5", StockStatusNormal},
		{"3", "0", StockStatusNormal},
		{"0", "0", StockStatusNormal},
		{"-1", "0", StockStatusCritical},
	}
	for _, tc := range cases {
		if got := ClassifyStock(d(tc.stock), d(tc.critical)); got != tc.want {
			t.Fatalf("ClassifyStock(%s, %s) expected %s, got %s", tc.stock, tc.critical, tc.want, got)
		}
	}
}

func TestAlertMessage(t *testing.T) {
	ev := AlertEvent{
		ProductName:   "Молоко",
		NewStock:      decimal.RequireFromString("4.5"),
		CriticalLevel: decimal.NewFromInt(5),
	}
	want := "⚠️ *Увага! Низький запас*\n\nТовар: *Молоко*\nЗалишок: `4.500`\nКритичний рівень: `5`"
	if got := ev.Message(); got != want {
		t.Fatalf("unexpected message:\n%s", got)
	}
}
