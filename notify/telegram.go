// Package notify delivers operator messages through the Telegram Bot API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRejected is returned when Telegram answers ok=false.
var ErrRejected = errors.New("telegram rejected message")

// Target is where a message goes.
type Target struct {
	Token  string
	ChatID string
}

func (t Target) Configured() bool {
	return strings.TrimSpace(t.Token) != "" && strings.TrimSpace(t.ChatID) != ""
}

// SendResult mirrors the Bot API envelope.
type SendResult struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Sender is implemented by TelegramClient and by test fakes.
type Sender interface {
	Send(ctx context.Context, text string, target Target) (SendResult, error)
}

type TelegramClient struct {
	baseURL string
	http    *http.Client
}

// NewTelegramClient talks to baseURL (https://api.telegram.org in production).
func NewTelegramClient(baseURL string, httpClient *http.Client) *TelegramClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &TelegramClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Send posts a Markdown message. The context bounds the whole call.
func (c *TelegramClient) Send(ctx context.Context, text string, target Target) (SendResult, error) {
	if !target.Configured() {
		return SendResult{}, errors.New("telegram target is not configured")
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    target.ChatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return SendResult{}, err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, target.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// The URL carries the token; never surface it.
		var uerr interface{ Unwrap() error }
		if errors.As(err, &uerr) && uerr.Unwrap() != nil {
			return SendResult{}, fmt.Errorf("telegram request failed: %w", uerr.Unwrap())
		}
		return SendResult{}, errors.New("telegram request failed")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var result SendResult
	if err := json.Unmarshal(body, &result); err != nil {
		return SendResult{}, fmt.Errorf("telegram api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if !result.OK {
		if result.Description == "" {
			result.Description = http.StatusText(resp.StatusCode)
		}
		return result, fmt.Errorf("%w: %s", ErrRejected, result.Description)
	}
	return result, nil
}
