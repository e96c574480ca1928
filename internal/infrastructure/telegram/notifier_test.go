package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ResetTracker/internal/domain"
)

func sampleSummary() domain.RunSummary {
	return domain.RunSummary{
		RunID:           "run-42",
		StartedAt:       time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC),
		Duration:        95 * time.Second,
		Locations:       12,
		FailedLocations: []string{"홍대"},
		Candidates:      40,
		Accepted:        9,
		Skipped:         6,
		Classified:      3,
		Replaced:        2,
		Unchanged:       1,
	}
}

func TestFormatSummary(t *testing.T) {
	t.Parallel()

	seoul := time.FixedZone("KST", 9*60*60)
	text := FormatSummary(sampleSummary(), seoul)

	for _, want := range []string{
		"run-42",
		"2024-01-16 02:00 (1m35s)",
		"Locations: 12 (failed: 홍대)",
		"40 found, 9 accepted, 6 skipped, 3 classified",
		"2 replaced, 1 unchanged, 0 failed",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary %q missing %q", text, want)
		}
	}
}

func TestNewNotifierValidates(t *testing.T) {
	t.Parallel()

	if _, err := NewNotifier(Options{ChatID: "1"}); err == nil {
		t.Fatalf("expected error without token")
	}
	if _, err := NewNotifier(Options{BotToken: "t", ChatID: "abc"}); err == nil {
		t.Fatalf("expected error for non-numeric chat id")
	}
}

func TestPublishSummarySendsMessage(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		chatID string
		text   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"tracker","username":"tracker_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if err := r.ParseForm(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			mu.Lock()
			chatID = r.PostForm.Get("chat_id")
			text = r.PostForm.Get("text")
			mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100,"type":"group"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	n, err := NewNotifier(Options{
		BotToken:    "token",
		ChatID:      "-100",
		APIEndpoint: srv.URL + "/bot%s/%s",
		Client:      srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewNotifier failed: %v", err)
	}

	if err := n.PublishSummary(context.Background(), sampleSummary()); err != nil {
		t.Fatalf("PublishSummary failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if chatID != "-100" {
		t.Fatalf("unexpected chat id %q", chatID)
	}
	if !strings.Contains(text, "run-42") {
		t.Fatalf("unexpected text %q", text)
	}
}
