package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AlertEvent is emitted when an update moves a product from above its critical
// level to at-or-below it.
type AlertEvent struct {
	ProductName   string          `json:"product_name"`
	PreviousStock decimal.Decimal `json:"previous_stock"`
	NewStock      decimal.Decimal `json:"new_stock"`
	CriticalLevel decimal.Decimal `json:"critical_level"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationId string          `json:"correlation_id,omitempty"`
}

// CrossesCriticalLevel is the alert trigger: previous stock strictly above the
// threshold, new stock at or below it. A zero threshold fires when stock runs out.
func CrossesCriticalLevel(previous, next, critical decimal.Decimal) bool {
	return previous.GreaterThan(critical) && next.LessThanOrEqual(critical)
}

// Message renders the Telegram text (Markdown).
func (e AlertEvent) Message() string {
	return fmt.Sprintf("⚠️ *Увага! Низький запас*\n\nТовар: *%s*\nЗалишок: `%s`\nКритичний рівень: `%s`",
		e.ProductName,
		e.NewStock.StringFixed(StockPrecision),
		e.CriticalLevel.String(),
	)
}

// LowStockItem is a line of the morning digest.
type LowStockItem struct {
	Name          string          `json:"name"`
	CurrentStock  decimal.Decimal `json:"current_stock"`
	CriticalLevel decimal.Decimal `json:"critical_level"`
}

const (
	digestHeader = "⚠️ *Критичні залишки на ранок:* \n\n"

	TelegramTestMessage = "✅ *Тестове з'єднання Stellar CRM успішне!*\n\nВаш бот налаштований вірно та готовий до роботи."
)

// DigestMessage renders the morning digest; empty when nothing is low.
func DigestMessage(items []LowStockItem) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(digestHeader)
	for _, it := range items {
		fmt.Fprintf(&b, "• *%s*: залишок `%s` (критично `%s`)\n",
			it.Name, it.CurrentStock.StringFixed(StockPrecision), it.CriticalLevel.String())
	}
	return b.String()
}
