package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverMemory = "memory"
	StoreDriverMySQL  = "mysql"
	StoreDriverSheets = "sheets"

	defaultTimezone          = "Europe/Kyiv"
	defaultRecentTransaction = 200
)

func init() {
	// Load env from .env
	godotenv.Load()
}

// StoreDriver selects the persistence backend: memory, mysql or sheets.
//
// Set via env:
// - STORE_DRIVER=mysql
func StoreDriver() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	switch v {
	case StoreDriverMySQL, StoreDriverSheets:
		return v
	default:
		return StoreDriverMemory
	}
}

// BusinessLocation is the timezone used for journal dates and the sales log time column.
func BusinessLocation() *time.Location {
	name := strings.TrimSpace(os.Getenv("BUSINESS_TIMEZONE"))
	if name == "" {
		name = defaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		GetLogger().WithField("timezone", name).Warn("unknown BUSINESS_TIMEZONE; falling back to UTC")
		return time.UTC
	}
	return loc
}

func RecentTransactionsLimit() int {
	n := intFromEnv("RECENT_TRANSACTIONS_LIMIT", defaultRecentTransaction)
	if n <= 0 {
		return defaultRecentTransaction
	}
	return n
}

func InventoryCacheTTL() time.Duration {
	return time.Duration(intFromEnv("INVENTORY_CACHE_TTL_SECONDS", 0)) * time.Second
}

func AlertSendTimeout() time.Duration {
	sec := intFromEnv("ALERT_SEND_TIMEOUT_SECONDS", 10)
	if sec <= 0 {
		sec = 10
	}
	return time.Duration(sec) * time.Second
}

func AlertMaxAttempts() int {
	n := intFromEnv("ALERT_MAX_ATTEMPTS", 1)
	if n <= 0 {
		return 1
	}
	return n
}

func AlertInitialBackoff() time.Duration {
	return time.Duration(intFromEnv("ALERT_INITIAL_BACKOFF_MS", 500)) * time.Millisecond
}

// TelegramDefaults are used when the settings table has no token/chat id.
func TelegramDefaults() (token, chatID string) {
	return strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")), strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID"))
}

func TelegramAPIBaseURL() string {
	v := strings.TrimRight(strings.TrimSpace(os.Getenv("TELEGRAM_API_BASE_URL")), "/")
	if v == "" {
		return "https://api.telegram.org"
	}
	return v
}

// AlertPubSubTopic routes low-stock alerts through Pub/Sub instead of the in-process queue.
func AlertPubSubTopic() string {
	return strings.TrimSpace(os.Getenv("ALERT_PUBSUB_TOPIC"))
}

// RedisEnabled is true when REDIS_ADDRESS is set; Redis is optional for this service.
func RedisEnabled() bool {
	return strings.TrimSpace(os.Getenv("REDIS_ADDRESS")) != ""
}

func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

func envBoolDefault(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	}
	return def
}

// SkipMigrations disables AutoMigrate on startup (run `stockctl migrate` as a job instead).
func SkipMigrations() bool {
	return envBoolDefault("SKIP_MIGRATIONS", false)
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// retrySleep is the connect backoff shared by the Connect*WithRetry helpers.
func retrySleep(attempt int) time.Duration {
	sleep := time.Second * time.Duration(1<<min(attempt, 5))
	if sleep > 30*time.Second {
		sleep = 30 * time.Second
	}
	return sleep
}
