package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTelegramClientSend_PostsMarkdownMessage(t *testing.T) {
	var got sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	c := NewTelegramClient(srv.URL+"/", nil)
	res, err := c.Send(context.Background(), "*hi*", Target{Token: "123:abc", ChatID: "-100"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected ok result")
	}
	if path != "/bot123:abc/sendMessage" {
		t.Fatalf("unexpected path %s", path)
	}
	if got.ChatID != "-100" || got.Text != "*hi*" || got.ParseMode != "Markdown" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestTelegramClientSend_RejectedCarriesDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	res, err := NewTelegramClient(srv.URL, nil).Send(context.Background(), "x", Target{Token: "t", ChatID: "c"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if res.OK || res.Description != "Bad Request: chat not found" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestTelegramClientSend_RespectsContextTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := NewTelegramClient(srv.URL, nil).Send(ctx, "x", Target{Token: "t", ChatID: "c"}); err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("send did not honour the context deadline")
	}
}

func TestTelegramClientSend_UnconfiguredTarget(t *testing.T) {
	if _, err := NewTelegramClient("http://127.0.0.1:0", nil).Send(context.Background(), "x", Target{}); err == nil {
		t.Fatalf("expected error for empty target")
	}
}
