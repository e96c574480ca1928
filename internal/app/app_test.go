package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"ResetTracker/internal/config"
)

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>theholdshop</title>
<link>https://blog.naver.com/theholdshop</link>
<description>notices</description>
</channel></rss>`

func testConfig(t *testing.T, feedURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Logging:  config.LoggingConfig{Level: "error"},
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(dir, "status.db")},
		Scheduler: config.SchedulerConfig{
			CronExpression: "0 2 * * *",
		},
		Source: config.SourceConfig{
			Strategy:  "rss",
			Publisher: "https://blog.naver.com/theholdshop",
			Brand:     "더클라임",
			RSSURL:    feedURL,
			PageSize:  50,
		},
		OCR:       config.OCRConfig{Backend: "tesseract"},
		Archive:   config.ArchiveConfig{Root: filepath.Join(dir, "public")},
		Pipeline:  config.PipelineConfig{Mode: "latest", Concurrency: 2, CallTimeout: 5 * time.Second},
		Locations: []string{"신림", "강남"},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnceWithEmptyFeed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(emptyFeed))
	}))
	t.Cleanup(srv.Close)

	application, err := New(context.Background(), testConfig(t, srv.URL), quietLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = application.Close() })

	summary, err := application.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if summary.Locations != 2 || len(summary.FailedLocations) != 0 || summary.RunID == "" {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "http://127.0.0.1:1/feed")
	cfg.Pipeline.Mode = "sometimes"
	if _, err := New(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatalf("expected config error")
	}

	cfg = testConfig(t, "http://127.0.0.1:1/feed")
	cfg.Scheduler.CronExpression = "daily please"
	if _, err := New(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatalf("expected cron error")
	}
}

func TestNewFailsWhenStoreUnreachable(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "http://127.0.0.1:1/feed")
	cfg.Database.DSN = filepath.Join(t.TempDir(), "missing", "dir", "status.db")
	if _, err := New(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatalf("expected store error")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	application, err := New(context.Background(), testConfig(t, "http://127.0.0.1:1/feed"), quietLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = application.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not stop")
	}
}
