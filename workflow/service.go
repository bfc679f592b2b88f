package workflow

import (
	"context"
	"fmt"
	"io"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/models"
	"bitbucket.org/mmdatafocus/stock_backend/models/reports"
	"bitbucket.org/mmdatafocus/stock_backend/notify"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

type ServiceOptions struct {
	Location     *time.Location
	JournalLimit int

	// RedisLock adds cross-replica product locks; nil keeps locks in-process.
	RedisLock *redislock.Client
	Cache     SnapshotCache
	CacheTTL  time.Duration

	Sender           notify.Sender
	TelegramDefaults notify.Target
	// AlertTopic routes alerts through Pub/Sub instead of the in-process dispatcher.
	AlertTopic  string
	AlertBuffer int

	Logger *logrus.Logger
}

// ServiceOptionsFromEnv reads the config package; Redis parts are set only when connected.
func ServiceOptionsFromEnv() ServiceOptions {
	token, chatID := config.TelegramDefaults()
	opts := ServiceOptions{
		Location:         config.BusinessLocation(),
		JournalLimit:     config.RecentTransactionsLimit(),
		CacheTTL:         config.InventoryCacheTTL(),
		Sender:           notify.NewTelegramClient(config.TelegramAPIBaseURL(), nil),
		TelegramDefaults: notify.Target{Token: token, ChatID: chatID},
		AlertTopic:       config.AlertPubSubTopic(),
		Logger:           config.GetLogger(),
	}
	if config.GetRedisDB() != nil {
		opts.RedisLock = config.GetRedisLock()
		opts.Cache = RedisSnapshotCache{}
	}
	return opts
}

// Service bundles the engine, read model and notification paths over one store.
type Service struct {
	Store         models.Store
	Locker        *KeyLocker
	Engine        *StockEngine
	Processor     *TransactionProcessor
	Reader        *InventoryReader
	Notifications *Notifications
	Dispatcher    *AlertDispatcher
	Location      *time.Location
	Logger        *logrus.Logger
}

func NewService(store models.Store, opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = config.GetLogger()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	notifications := NewNotifications(store, opts.Sender, opts.TelegramDefaults, logger)
	dispatcher := NewAlertDispatcher(notifications, logger, opts.AlertBuffer)

	var sink AlertSink = dispatcher
	if opts.AlertTopic != "" {
		sink = NewPubSubAlertSink(opts.AlertTopic, logger)
	}

	locker := NewKeyLocker(opts.RedisLock, logger)
	engine := NewStockEngine(store, locker, sink, logger)
	processor := NewTransactionProcessor(engine, store, loc, logger)
	reader := NewInventoryReader(store, opts.JournalLimit, logger).WithCache(opts.Cache, opts.CacheTTL)
	processor.OnCommitted = reader.Invalidate

	return &Service{
		Store:         store,
		Locker:        locker,
		Engine:        engine,
		Processor:     processor,
		Reader:        reader,
		Notifications: notifications,
		Dispatcher:    dispatcher,
		Location:      loc,
		Logger:        logger,
	}
}

func (s *Service) Analytics(ctx context.Context, period models.AnalyticsPeriod) (*models.AnalyticsReport, error) {
	return Analytics(ctx, s.Store, period, time.Now(), s.Location)
}

func (s *Service) LowStockDigest(ctx context.Context) (DigestResult, error) {
	return LowStockDigest(ctx, s.Store, s.Notifications)
}

func (s *Service) RebuildStock(ctx context.Context, opts RebuildOptions) ([]StockDiff, error) {
	diffs, err := RebuildStock(ctx, s.Store, s.Locker, s.Logger, opts)
	if err == nil && opts.Apply && len(diffs) > 0 {
		s.Reader.Invalidate(ctx)
	}
	return diffs, err
}

func (s *Service) SyncDirectory(ctx context.Context) ([]string, error) {
	created, err := SyncDirectory(ctx, s.Store)
	if len(created) > 0 {
		s.Reader.Invalidate(ctx)
	}
	return created, err
}

func (s *Service) CreateProduct(ctx context.Context, input *models.NewProduct) (models.StockRow, error) {
	row, err := CreateProduct(ctx, s.Store, input)
	if err == nil {
		s.Reader.Invalidate(ctx)
	}
	return row, err
}

// ExportWorkbook writes the XLSX export: the current ledger and the full journal.
func (s *Service) ExportWorkbook(ctx context.Context, w io.Writer) error {
	snapshot, err := s.Reader.GetInventory(ctx)
	if err != nil {
		return err
	}
	journal, err := s.Store.RecentJournal(ctx, 0)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	return reports.WriteWorkbook(w, snapshot, journal, s.Location)
}
