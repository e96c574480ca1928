package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ResetTracker/internal/domain"
)

var testKey = domain.Key{Location: "신림", Category: domain.CategoryResetComplete}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(Options{
		Root:          t.TempDir(),
		PublicBaseURL: "https://status.example/",
		Brand:         "더클라임",
		Location:      time.FixedZone("KST", 9*60*60),
	})
}

func TestPutAndPruneKeepSingleFile(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for _, date := range []domain.PostDate{"20240101", "20240110", "20240115"} {
		rel, err := s.Put(ctx, testKey, date, []byte("img-"+date.String()))
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if rel != "신림/세팅완료/"+date.String()+".jpg" {
			t.Fatalf("unexpected relative path %s", rel)
		}
		if err := s.Prune(ctx, testKey, date); err != nil {
			t.Fatalf("Prune failed: %v", err)
		}

		names, err := s.Images(testKey)
		if err != nil {
			t.Fatalf("Images failed: %v", err)
		}
		if len(names) != 1 || names[0] != date.String()+".jpg" {
			t.Fatalf("expected only %s.jpg, got %v", date, names)
		}
	}

	data, err := os.ReadFile(filepath.Join(s.Root(), "신림", "세팅완료", "20240115.jpg"))
	if err != nil {
		t.Fatalf("read archived image: %v", err)
	}
	if string(data) != "img-20240115" {
		t.Fatalf("unexpected image content %q", data)
	}
}

func TestPruneRemovesLeftoverTempFiles(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, testKey, "20240115", []byte("img")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	dir := filepath.Join(s.Root(), "신림", "세팅완료")
	if err := os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("partial"), 0o644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	if err := s.Prune(ctx, testKey, "20240115"); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".tmp-123")); !os.IsNotExist(err) {
		t.Fatalf("temp file should be removed")
	}
}

func TestPutRejectsUnsafeLocation(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	for _, location := range []string{"", "..", "a/b", `a\b`} {
		key := domain.Key{Location: location, Category: domain.CategoryResetSoon}
		if _, err := s.Put(context.Background(), key, "20240101", []byte("x")); err == nil {
			t.Fatalf("location %q should be rejected", location)
		}
	}
	if _, err := s.Put(context.Background(), testKey, "20240101", nil); err == nil {
		t.Fatalf("empty image should be rejected")
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	record := domain.StatusRecord{
		Location:   "신림",
		Category:   domain.CategoryResetComplete,
		LatestDate: "20240115",
		ImagePath:  "신림/세팅완료/20240115.jpg",
	}

	if err := s.Render(context.Background(), record); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	pagePath, err := s.PagePath(testKey)
	if err != nil {
		t.Fatalf("PagePath failed: %v", err)
	}
	page, err := os.ReadFile(pagePath)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}

	html := string(page)
	for _, want := range []string{
		"<title>더클라임 신림 지점 세팅완료</title>",
		"2024년 1월 15일",
		`datetime="2024-01-15"`,
		"20240115.jpg",
		"https://status.example/",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("page missing %q:\n%s", want, html)
		}
	}

	record.LatestDate = "20240201"
	record.ImagePath = "신림/세팅완료/20240201.jpg"
	if err := s.Render(context.Background(), record); err != nil {
		t.Fatalf("second Render failed: %v", err)
	}
	page, err = os.ReadFile(pagePath)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if strings.Contains(string(page), "20240115") {
		t.Fatalf("page must be regenerated in full")
	}
}
