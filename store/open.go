// Package store opens the persistence backend named by STORE_DRIVER.
package store

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/models"
	"bitbucket.org/mmdatafocus/stock_backend/store/memory"
	"bitbucket.org/mmdatafocus/stock_backend/store/mysqlstore"
	"bitbucket.org/mmdatafocus/stock_backend/store/sheetstore"
	"github.com/sirupsen/logrus"
)

// Open connects the backend for driver. For mysql it blocks until the
// database answers and runs AutoMigrate unless SKIP_MIGRATIONS is set.
func Open(ctx context.Context, driver string) (models.Store, error) {
	logger := config.GetLogger()
	switch driver {
	case config.StoreDriverMySQL:
		if config.GetDB() == nil {
			config.ConnectDatabaseWithRetry()
		}
		if config.SkipMigrations() {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
		} else if err := mysqlstore.MigrateTable(nil); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return mysqlstore.New(nil), nil
	case config.StoreDriverSheets:
		s, err := sheetstore.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("open sheets store: %w", err)
		}
		return s, nil
	case config.StoreDriverMemory, "":
		logger.WithFields(logrus.Fields{"field": "store"}).Warn("using the in-memory store; data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
