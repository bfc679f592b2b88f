package sheetstore

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/models"
	"github.com/shopspring/decimal"
)

// Google Sheets day zero for serial date numbers.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

func a1(tab, cells string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!" + cells
}

func cell(row []interface{}, i int) interface{} {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func cellString(row []interface{}, i int) string {
	switch v := cell(row, i).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// cellDecimal reads a number the way the dashboard does: anything unparsable is 0.
func cellDecimal(row []interface{}, i int) decimal.Decimal {
	d, _ := cellDecimalStrict(row, i)
	return d
}

func cellDecimalStrict(row []interface{}, i int) (decimal.Decimal, bool) {
	switch v := cell(row, i).(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case bool, nil:
		return decimal.Zero, false
	default:
		d, err := models.ParseDecimal(cellString(row, i))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
}

// cellTime accepts serial numbers and the formatted forms a transaction date may take.
func cellTime(row []interface{}, i int, loc *time.Location) time.Time {
	switch v := cell(row, i).(type) {
	case float64:
		secs := time.Duration(math.Round(v*86400)) * time.Second
		t := serialEpoch.Add(secs)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	case string:
		if strings.TrimSpace(v) == "" {
			return time.Time{}
		}
		t, err := models.ParseTransactionDate(v, time.Time{}, loc)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

var updatedRow = regexp.MustCompile(`![A-Z]+(\d+)`)

// rowOfRange extracts the first row number of an A1 range such as 'Tab'!A15:G15.
func rowOfRange(rng string) (int, error) {
	m := updatedRow.FindStringSubmatch(rng)
	if len(m) != 2 {
		return 0, fmt.Errorf("unexpected range %q", rng)
	}
	return strconv.Atoi(m[1])
}
