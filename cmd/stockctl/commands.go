package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/stock_backend/models"
	"bitbucket.org/mmdatafocus/stock_backend/utils"
	"bitbucket.org/mmdatafocus/stock_backend/workflow"
	"github.com/spf13/cobra"
)

// NewDigestCommand sends the morning low-stock digest.
func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Send every product at or below its critical level in one Telegram message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := rootOpts.OpenService(ctx)
			if err != nil {
				return err
			}
			result, err := svc.LowStockDigest(ctx)
			skipped := errors.Is(err, models.ErrNotificationSkipped)
			if err != nil && !skipped {
				return fmt.Errorf("low-stock digest: %w", err)
			}
			if rootOpts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}
			out := cmd.OutOrStdout()
			if len(result.Items) == 0 {
				fmt.Fprintln(out, "nothing is low")
				return nil
			}
			for _, it := range result.Items {
				fmt.Fprintf(out, "%s: %s (critical %s)\n", it.Name, it.CurrentStock.StringFixed(models.StockPrecision), it.CriticalLevel)
			}
			switch {
			case result.Sent:
				fmt.Fprintf(out, "sent %d item(s)\n", len(result.Items))
			case skipped:
				fmt.Fprintln(out, "not sent: telegram is not configured")
			}
			return nil
		},
	}
}

type rebuildOptions struct {
	apply    bool
	products []string
}

// NewRebuildCommand replays the journal and reports (or fixes) ledger drift.
func NewRebuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &rebuildOptions{}
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Recompute stock from the journal and compare it with the ledger",
		Long: `Replay the whole journal from zero, expanding sales with the current
recipes and rounding every step, then list the ledger rows that differ.

Examples:
  stockctl rebuild
  stockctl rebuild --product Молоко --product Кава
  stockctl rebuild --apply`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := rootOpts.OpenService(ctx)
			if err != nil {
				return err
			}
			diffs, err := svc.RebuildStock(ctx, workflow.RebuildOptions{Apply: opts.apply, Products: opts.products})
			if err != nil {
				return fmt.Errorf("rebuild stock: %w", err)
			}
			if rootOpts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"applied": opts.apply,
					"diffs":   diffs,
				})
			}
			out := cmd.OutOrStdout()
			if len(diffs) == 0 {
				fmt.Fprintln(out, "ledger matches the journal")
				return nil
			}
			for _, d := range diffs {
				fmt.Fprintf(out, "%s: %s -> %s\n", d.Name,
					d.Stored.StringFixed(models.StockPrecision), d.Computed.StringFixed(models.StockPrecision))
			}
			if opts.apply {
				fmt.Fprintf(out, "updated %d row(s)\n", len(diffs))
			} else {
				fmt.Fprintf(out, "%d row(s) differ; rerun with --apply to write them\n", len(diffs))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "write the computed values to the ledger")
	cmd.Flags().StringArrayVar(&opts.products, "product", nil, "limit to this product (repeatable)")
	return cmd
}

// NewSyncDirectoryCommand creates zero-stock ledger rows for directory names.
func NewSyncDirectoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-directory",
		Short: "Create ledger rows for directory products that are missing from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := rootOpts.OpenService(ctx)
			if err != nil {
				return err
			}
			created, err := svc.SyncDirectory(ctx)
			if err != nil {
				return fmt.Errorf("sync directory: %w", err)
			}
			if rootOpts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"created": created})
			}
			if len(created) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "ledger already lists every directory product")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created: %s\n", strings.Join(created, ", "))
			return nil
		},
	}
}

type exportOptions struct {
	out       string
	gcsObject string
}

// NewExportCommand writes the XLSX export to a file and optionally uploads it.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger and journal as an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.out == "" && opts.gcsObject == "" {
				return errors.New("set --out, --gcs-object or both")
			}
			ctx := cmd.Context()
			svc, err := rootOpts.OpenService(ctx)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := svc.ExportWorkbook(ctx, &buf); err != nil {
				return fmt.Errorf("build workbook: %w", err)
			}
			if opts.out != "" {
				if err := os.WriteFile(opts.out, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", opts.out, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", opts.out, buf.Len())
			}
			if opts.gcsObject != "" {
				if err := rootOpts.Upload(ctx, opts.gcsObject, bytes.NewReader(buf.Bytes()), utils.ContentTypeXLSX); err != nil {
					return fmt.Errorf("upload %s: %w", opts.gcsObject, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", opts.gcsObject)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.out, "out", "", "path of the .xlsx file to write")
	cmd.Flags().StringVar(&opts.gcsObject, "gcs-object", "", "object name to upload into GCS_BUCKET")
	return cmd
}

// NewMigrateCommand runs AutoMigrate for the MySQL store.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the MySQL tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
