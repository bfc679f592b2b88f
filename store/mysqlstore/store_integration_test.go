package mysqlstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/models"
	"github.com/shopspring/decimal"
)

func TestMySQLStoreRoundTrip(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "stock_test")

	config.ConnectDatabaseWithRetry()
	if err := MigrateTable(nil); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}
	s := New(nil)

	if err := s.CreateStock(ctx, models.StockRow{Name: " Молоко ", Unit: "л", CurrentStock: decimal.NewFromInt(10)}); err != nil {
		t.Fatalf("CreateStock: %v", err)
	}
	if err := s.CreateStock(ctx, models.StockRow{Name: "МОЛОКО"}); !errors.Is(err, models.ErrProductExists) {
		t.Fatalf("expected ErrProductExists, got %v", err)
	}

	key := models.NormalizeName("молоко")
	if err := s.SetStock(ctx, key, decimal.RequireFromString("9.4")); err != nil {
		t.Fatalf("SetStock: %v", err)
	}
	// Same value again: zero affected rows must not read as missing.
	if err := s.SetStock(ctx, key, decimal.RequireFromString("9.4")); err != nil {
		t.Fatalf("SetStock unchanged: %v", err)
	}
	if err := s.SetStock(ctx, models.NormalizeName("Кава"), decimal.NewFromInt(1)); !errors.Is(err, models.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	row, ok, err := s.FindStock(ctx, key)
	if err != nil || !ok || row.Name != "Молоко" || !row.CurrentStock.Equal(decimal.RequireFromString("9.4")) {
		t.Fatalf("FindStock: row=%+v ok=%v err=%v", row, ok, err)
	}

	if err := s.UpsertDirectory(ctx, models.DirectoryEntry{Name: "Молоко", CriticalLevel: decimal.NewFromInt(5)}); err != nil {
		t.Fatalf("UpsertDirectory: %v", err)
	}
	if err := s.UpsertDirectory(ctx, models.DirectoryEntry{Name: "молоко", Category: "Молочка", CriticalLevel: decimal.NewFromInt(3)}); err != nil {
		t.Fatalf("UpsertDirectory again: %v", err)
	}
	dir, _ := s.ListDirectory(ctx)
	if len(dir) != 1 || dir[0].Category != "Молочка" || !dir[0].CriticalLevel.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected directory %+v", dir)
	}

	for _, ing := range []string{"Молоко", "Кава"} {
		if err := s.AddRecipeLine(ctx, models.RecipeRow{FinishedGood: "Лате", Ingredient: ing, Amount: decimal.RequireFromString("0.2")}); err != nil {
			t.Fatalf("AddRecipeLine: %v", err)
		}
	}
	rows, err := s.FindRecipe(ctx, models.NormalizeName("ЛАТЕ"))
	if err != nil || len(rows) != 2 || rows[0].Ingredient != "Молоко" {
		t.Fatalf("FindRecipe: rows=%+v err=%v", rows, err)
	}

	for i := 1; i <= 3; i++ {
		pos, err := s.AppendJournal(ctx, models.JournalEntry{
			Date:     time.Date(2024, 3, i, 9, 0, 0, 0, time.UTC),
			Item:     "Молоко",
			Quantity: decimal.NewFromInt(int64(i)),
			Type:     models.TransactionKindArrival,
		})
		if err != nil || pos != i {
			t.Fatalf("AppendJournal: pos=%d err=%v", pos, err)
		}
	}
	tail, err := s.RecentJournal(ctx, 2)
	if err != nil || len(tail) != 2 || tail[0].Position != 2 || tail[1].Position != 3 {
		t.Fatalf("RecentJournal: %+v err=%v", tail, err)
	}

	if err := s.PutSetting(ctx, models.SettingTelegramChatId, "42"); err != nil {
		t.Fatalf("PutSetting: %v", err)
	}
	v, ok, err := s.GetSetting(ctx, models.SettingTelegramChatId)
	if err != nil || !ok || v != "42" {
		t.Fatalf("GetSetting: v=%q ok=%v err=%v", v, ok, err)
	}
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("stock-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=stock_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--character-set-server=utf8mb4",
		"--collation-server=utf8mb4_unicode_ci",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
