package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// StockPrecision is the number of decimals the ledger keeps.
	StockPrecision = 3
	// MoneyPrecision is used for revenue/cost/profit figures.
	MoneyPrecision = 2
)

var half = decimal.New(5, -1)

// roundHalfUp rounds to places decimals with halves going toward +infinity
// (-2.0005 -> -2.000, 2.0005 -> 2.001), matching the dashboard's rounding.
func roundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Shift(places).Add(half).Floor().Shift(-places)
}

// RoundStock rounds a quantity to the ledger precision.
func RoundStock(d decimal.Decimal) decimal.Decimal {
	return roundHalfUp(d, StockPrecision)
}

func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return roundHalfUp(d, MoneyPrecision)
}

// ParseDecimal accepts user/sheet formatted numbers:
// - "12.5", "12,5" (comma as decimal separator)
// - "1 234,5", "1,234.50" (grouping)
// - "-3", "  7 кг "
//
// Keeps digits, one decimal separator and a leading '-' only.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("invalid value %q", raw)
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	}

	var b strings.Builder
	b.Grow(len(s) + 1)
	seenDot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" || clean == "." {
		return decimal.Zero, fmt.Errorf("invalid value %q", raw)
	}
	if neg {
		clean = "-" + clean
	}
	return decimal.NewFromString(clean)
}

// ParseDecimalOrZero is used for stored cells, where garbage reads as zero.
func ParseDecimalOrZero(raw string) decimal.Decimal {
	d, err := ParseDecimal(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// LooseDecimal is an input number that may arrive as a JSON number or a formatted string.
type LooseDecimal struct {
	decimal.Decimal
}

func (l *LooseDecimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		l.Decimal = decimal.Zero
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		d, err := ParseDecimal(s)
		if err != nil {
			return err
		}
		l.Decimal = d
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	l.Decimal = d
	return nil
}

func (l LooseDecimal) MarshalJSON() ([]byte, error) {
	return []byte(l.Decimal.String()), nil
}

// Quantity renders with three decimals as a JSON number.
type Quantity decimal.Decimal

func NewQuantity(d decimal.Decimal) Quantity { return Quantity(RoundStock(d)) }

func (q Quantity) Decimal() decimal.Decimal { return decimal.Decimal(q) }

func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(q).StringFixed(StockPrecision)), nil
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	var l LooseDecimal
	if err := l.UnmarshalJSON(data); err != nil {
		return err
	}
	*q = Quantity(l.Decimal)
	return nil
}

// Money renders with two decimals as a JSON number.
type Money decimal.Decimal

func NewMoney(d decimal.Decimal) Money { return Money(RoundMoney(d)) }

func (m Money) Decimal() decimal.Decimal { return decimal.Decimal(m) }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(MoneyPrecision)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var l LooseDecimal
	if err := l.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = Money(l.Decimal)
	return nil
}
