package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/store"
	"bitbucket.org/mmdatafocus/stock_backend/store/mysqlstore"
	"bitbucket.org/mmdatafocus/stock_backend/utils"
	"bitbucket.org/mmdatafocus/stock_backend/workflow"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags and the collaborators every command uses.
type RootOptions struct {
	Format string // "json" | "text"

	// OpenService builds the service over the configured store.
	OpenService func(ctx context.Context) (*workflow.Service, error)
	// Upload stores an export object (GCS in production).
	Upload func(ctx context.Context, objectName string, r io.Reader, contentType string) error
	// Migrate creates the MySQL tables.
	Migrate func(ctx context.Context) error
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

func defaultOptions() *RootOptions {
	return &RootOptions{
		OpenService: openServiceFromEnv,
		Upload:      utils.UploadToGCS,
		Migrate:     migrateMySQL,
	}
}

func openServiceFromEnv(ctx context.Context) (*workflow.Service, error) {
	if config.RedisEnabled() {
		config.ConnectRedisWithRetry()
	}
	st, err := store.Open(ctx, config.StoreDriver())
	if err != nil {
		return nil, err
	}
	return workflow.NewService(st, workflow.ServiceOptionsFromEnv()), nil
}

func migrateMySQL(ctx context.Context) error {
	if config.StoreDriver() != config.StoreDriverMySQL {
		return fmt.Errorf("migrate needs STORE_DRIVER=%s, got %s", config.StoreDriverMySQL, config.StoreDriver())
	}
	config.ConnectDatabaseWithRetry()
	return mysqlstore.MigrateTable(config.GetDB().WithContext(ctx))
}

// NewRootCommand creates the stockctl command tree. Nil opts uses the env-configured store.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	if opts == nil {
		opts = &RootOptions{}
	}
	defaults := defaultOptions()
	if opts.OpenService == nil {
		opts.OpenService = defaults.OpenService
	}
	if opts.Upload == nil {
		opts.Upload = defaults.Upload
	}
	if opts.Migrate == nil {
		opts.Migrate = defaults.Migrate
	}

	cmd := &cobra.Command{
		Use:   "stockctl",
		Short: "Stock ledger maintenance jobs",
		Long:  "Runs the morning low-stock digest, journal replay, directory sync, export and migrations against the configured store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			ctx := utils.SetSourceInContext(cmd.Context(), "cli")
			if op := os.Getenv("USER"); op != "" {
				ctx = utils.SetOperatorInContext(ctx, op)
			}
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewDigestCommand(opts))
	cmd.AddCommand(NewRebuildCommand(opts))
	cmd.AddCommand(NewSyncDirectoryCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// printJSON writes v indented; text output is done by each command.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
