package workflow

import (
	"context"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/models"
	"bitbucket.org/mmdatafocus/stock_backend/notify"
	"github.com/sirupsen/logrus"
)

// Notifications resolves the Telegram target and sends operator messages.
// The settings table wins over the env defaults.
type Notifications struct {
	settings models.SettingsRepository
	sender   notify.Sender
	defaults notify.Target
	logger   *logrus.Logger
}

func NewNotifications(settings models.SettingsRepository, sender notify.Sender, defaults notify.Target, logger *logrus.Logger) *Notifications {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Notifications{
		settings: settings,
		sender:   sender,
		defaults: defaults,
		logger:   logger,
	}
}

// Target reads "Telegram Token" / "Telegram Chat ID" and falls back per field.
func (n *Notifications) Target(ctx context.Context) notify.Target {
	target := n.defaults
	if n.settings == nil {
		return target
	}
	if v, ok, err := n.settings.GetSetting(ctx, models.SettingTelegramToken); err != nil {
		config.LogError(n.logger, "notifications.go", "Target", "read telegram token setting", nil, err)
	} else if ok && strings.TrimSpace(v) != "" {
		target.Token = strings.TrimSpace(v)
	}
	if v, ok, err := n.settings.GetSetting(ctx, models.SettingTelegramChatId); err != nil {
		config.LogError(n.logger, "notifications.go", "Target", "read telegram chat id setting", nil, err)
	} else if ok && strings.TrimSpace(v) != "" {
		target.ChatID = strings.TrimSpace(v)
	}
	return target
}

// Notify sends text; returns models.ErrNotificationSkipped when nothing is configured.
func (n *Notifications) Notify(ctx context.Context, text string) error {
	target := n.Target(ctx)
	if !target.Configured() || n.sender == nil {
		return models.ErrNotificationSkipped
	}
	if _, err := n.sender.Send(ctx, text, target); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// TestResult is returned by GET /?action=testTelegram.
type TestResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Test sends the connection-check message and reports the API's answer.
func (n *Notifications) Test(ctx context.Context) TestResult {
	target := n.Target(ctx)
	if !target.Configured() || n.sender == nil {
		return TestResult{Success: false, Error: "Telegram token or chat ID is not configured"}
	}
	res, err := n.sender.Send(ctx, models.TelegramTestMessage, target)
	if err != nil {
		msg := res.Description
		if msg == "" {
			msg = err.Error()
		}
		return TestResult{Success: false, Error: msg}
	}
	return TestResult{Success: res.OK}
}
