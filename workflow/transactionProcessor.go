package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/models"
	"bitbucket.org/mmdatafocus/stock_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer = otel.Tracer("stock-backend/workflow")

// TransactionProcessor turns a submitted transaction into ledger updates and journal rows.
type TransactionProcessor struct {
	engine   *StockEngine
	journal  models.JournalRepository
	location *time.Location
	logger   *logrus.Logger
	now      func() time.Time

	// OnCommitted runs after the journal row is written (read-model cache invalidation).
	OnCommitted func(ctx context.Context)
}

func NewTransactionProcessor(engine *StockEngine, journal models.JournalRepository, location *time.Location, logger *logrus.Logger) *TransactionProcessor {
	if logger == nil {
		logger = config.GetLogger()
	}
	if location == nil {
		location = time.UTC
	}
	return &TransactionProcessor{
		engine:   engine,
		journal:  journal,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// Process never panics and never returns an error; failures are reported in the result.
func (p *TransactionProcessor) Process(ctx context.Context, input *models.NewTransaction) (result models.ProcessResult) {
	ctx, span := tracer.Start(ctx, "TransactionProcessor.Process", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	kind := "unknown"
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			config.LogError(p.logger, "transactionProcessor.go", "Process", "recovered panic", input, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			result = models.ProcessResult{Success: false, Message: "internal error"}
		}
		outcome := "success"
		if !result.Success {
			outcome = "failure"
		}
		transactionsTotal.WithLabelValues(kind, outcome).Inc()
	}()

	tx, err := input.Parse(p.now(), p.location)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		config.LogWarn(p.logger, "transactionProcessor.go", "Process", err.Error(), input)
		return models.ProcessResult{Success: false, Message: err.Error()}
	}
	kind = string(tx.Kind())
	line := tx.Line()
	span.SetAttributes(
		attribute.String("transaction.kind", kind),
		attribute.String("transaction.item", line.Item),
		attribute.String("transaction.quantity", line.Quantity.String()),
	)

	if err := p.apply(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		config.LogError(p.logger, "transactionProcessor.go", "Process", "apply transaction", line.Item, err)
		return models.ProcessResult{Success: false, Message: err.Error()}
	}

	if err := p.record(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		config.LogError(p.logger, "transactionProcessor.go", "Process", "record transaction", line.Item, err)
		return models.ProcessResult{Success: false, Message: err.Error()}
	}

	if p.OnCommitted != nil {
		p.OnCommitted(ctx)
	}

	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	source, _ := utils.GetSourceFromContext(ctx)
	operator, _ := utils.GetOperatorFromContext(ctx)
	p.logger.WithFields(logrus.Fields{
		"field":          "TransactionProcessor",
		"kind":           kind,
		"item":           line.Item,
		"quantity":       line.Quantity.String(),
		"correlation_id": cid,
		"source":         source,
		"operator":       operator,
	}).Info("transaction processed")
	return models.ProcessResult{Success: true}
}

// apply performs the ledger side of tx. Store failures are returned; a missing
// product or recipe is not a failure.
func (p *TransactionProcessor) apply(ctx context.Context, tx models.Transaction) error {
	line := tx.Line()
	switch t := tx.(type) {
	case models.Sale:
		report, err := p.engine.WriteOffIngredients(ctx, t.Item, t.Quantity)
		if err != nil {
			// The sale is still recorded without its recipe write-off.
			config.LogError(p.logger, "transactionProcessor.go", "apply", "recipe write-off", t.Item, err)
			return nil
		}
		if len(report.Failed) > 0 {
			p.logger.WithFields(logrus.Fields{
				"field":         "TransactionProcessor",
				"finished_good": t.Item,
				"failed":        report.Failed,
			}).Warn("some ingredients were not written off")
		}
		return nil
	case models.Arrival:
		_, err := p.engine.UpdateStock(ctx, line.Item, line.Quantity)
		return err
	case models.WriteOff:
		_, err := p.engine.UpdateStock(ctx, line.Item, line.Quantity.Neg())
		return err
	default:
		return fmt.Errorf("%w: unsupported transaction %T", models.ErrValidation, tx)
	}
}

// record appends the journal row, then the purchase or sales summary row.
// A failing summary log is logged and does not fail the transaction.
func (p *TransactionProcessor) record(ctx context.Context, tx models.Transaction) error {
	if _, err := p.journal.AppendJournal(ctx, models.JournalEntryFor(tx)); err != nil {
		if !errors.Is(err, models.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("append journal: %w", err)
	}

	switch t := tx.(type) {
	case models.Arrival:
		if err := p.journal.AppendPurchase(ctx, models.PurchaseRecordFor(t)); err != nil {
			config.LogError(p.logger, "transactionProcessor.go", "record", "append purchase log", t.Item, err)
		}
	case models.Sale:
		if err := p.journal.AppendSale(ctx, models.SaleRecordFor(t, p.location)); err != nil {
			config.LogError(p.logger, "transactionProcessor.go", "record", "append sales log", t.Item, err)
		}
	}
	return nil
}
