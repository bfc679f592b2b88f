package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/models"
	"bitbucket.org/mmdatafocus/stock_backend/notify"
	"bitbucket.org/mmdatafocus/stock_backend/store/memory"
	"bitbucket.org/mmdatafocus/stock_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeSender) Send(_ context.Context, text string, _ notify.Target) (notify.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return notify.SendResult{OK: true}, nil
}

type harness struct {
	store    *memory.Store
	sender   *fakeSender
	uploaded map[string][]byte
	migrated bool
}

func newHarness(t *testing.T, target notify.Target) (*harness, *RootOptions) {
	t.Helper()
	h := &harness{
		store: memory.NewSeeded(memory.Seed{
			Stock: []models.StockRow{
				{Name: "Молоко", Unit: "л", CurrentStock: decimal.RequireFromString("4.5")},
				{Name: "Кава", Unit: "кг", CurrentStock: decimal.NewFromInt(1)},
			},
			Directory: []models.DirectoryEntry{
				{Category: "Молочка", Name: "Молоко", Unit: "л", CriticalLevel: decimal.NewFromInt(5)},
				{Category: "Зерно", Name: "Кава", Unit: "кг", CriticalLevel: decimal.RequireFromString("0.5")},
				{Category: "Інше", Name: "Цукор", Unit: "кг"},
			},
		}),
		sender:   &fakeSender{},
		uploaded: map[string][]byte{},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	opts := &RootOptions{
		OpenService: func(ctx context.Context) (*workflow.Service, error) {
			return workflow.NewService(h.store, workflow.ServiceOptions{
				Location:         time.UTC,
				Sender:           h.sender,
				TelegramDefaults: target,
				Logger:           logger,
			}), nil
		},
		Upload: func(ctx context.Context, name string, r io.Reader, contentType string) error {
			b, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			h.uploaded[name] = b
			return nil
		},
		Migrate: func(ctx context.Context) error {
			h.migrated = true
			return nil
		},
	}
	return h, opts
}

func run(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestDigestCommand(t *testing.T) {
	h, opts := newHarness(t, notify.Target{Token: "123:abc", ChatID: "42"})

	out, err := run(t, opts, "digest")
	require.NoError(t, err)
	assert.Contains(t, out, "Молоко: 4.500 (critical 5)")
	assert.Contains(t, out, "sent 1 item(s)")
	require.Len(t, h.sender.texts, 1)
	assert.Contains(t, h.sender.texts[0], "*Молоко*")
}

func TestDigestCommandUnconfiguredTelegram(t *testing.T) {
	h, opts := newHarness(t, notify.Target{})

	out, err := run(t, opts, "digest", "--format", "json")
	require.NoError(t, err)
	assert.Empty(t, h.sender.texts)

	var result workflow.DigestResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Sent)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Молоко", result.Items[0].Name)
}

func TestRebuildCommand(t *testing.T) {
	h, opts := newHarness(t, notify.Target{})
	ctx := context.Background()
	_, err := h.store.AppendJournal(ctx, models.JournalEntry{
		Date:     time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Item:     "Кава",
		Quantity: decimal.NewFromInt(1),
		Type:     models.TransactionKindArrival,
	})
	require.NoError(t, err)

	out, err := run(t, opts, "rebuild", "--product", "кава")
	require.NoError(t, err)
	assert.Contains(t, out, "ledger matches the journal")

	out, err = run(t, opts, "rebuild", "--product", "Молоко")
	require.NoError(t, err)
	assert.Contains(t, out, "Молоко: 4.500 -> 0.000")
	assert.Contains(t, out, "rerun with --apply")

	_, err = run(t, opts, "rebuild", "--apply")
	require.NoError(t, err)
	milk, _, _ := h.store.FindStock(ctx, models.NormalizeName("Молоко"))
	assert.True(t, milk.CurrentStock.IsZero(), "milk = %s", milk.CurrentStock)

	out, err = run(t, opts, "rebuild")
	require.NoError(t, err)
	assert.Contains(t, out, "ledger matches the journal")
}

func TestSyncDirectoryCommand(t *testing.T) {
	h, opts := newHarness(t, notify.Target{})

	out, err := run(t, opts, "sync-directory")
	require.NoError(t, err)
	assert.Contains(t, out, "created: Цукор")

	_, ok, err := h.store.FindStock(context.Background(), models.NormalizeName("цукор"))
	require.NoError(t, err)
	assert.True(t, ok)

	out, err = run(t, opts, "sync-directory")
	require.NoError(t, err)
	assert.Contains(t, out, "already lists every directory product")
}

func TestExportCommand(t *testing.T) {
	h, opts := newHarness(t, notify.Target{})
	path := filepath.Join(t.TempDir(), "stock.xlsx")

	out, err := run(t, opts, "export", "--out", path, "--gcs-object", "exports/stock.xlsx")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)
	assert.Contains(t, out, "uploaded exports/stock.xlsx")

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(written, []byte("PK")))
	assert.Equal(t, written, h.uploaded["exports/stock.xlsx"])

	_, err = run(t, opts, "export")
	assert.Error(t, err)
}

func TestExportCommandUploadFailure(t *testing.T) {
	_, opts := newHarness(t, notify.Target{})
	opts.Upload = func(context.Context, string, io.Reader, string) error {
		return errors.New("bucket gone")
	}
	_, err := run(t, opts, "export", "--gcs-object", "x.xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
}

func TestMigrateCommand(t *testing.T) {
	h, opts := newHarness(t, notify.Target{})
	out, err := run(t, opts, "migrate")
	require.NoError(t, err)
	assert.True(t, h.migrated)
	assert.Contains(t, out, "migrations applied")
}

func TestInvalidFormat(t *testing.T) {
	_, opts := newHarness(t, notify.Target{})
	_, err := run(t, opts, "digest", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
