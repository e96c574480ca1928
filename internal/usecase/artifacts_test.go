package usecase

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"ResetTracker/internal/domain"
	"ResetTracker/internal/ports"
)

func observation(date domain.PostDate) domain.ClassifiedObservation {
	return domain.ClassifiedObservation{
		Location:    "논현",
		Category:    domain.CategoryResetSoon,
		PostID:      "p-" + date.String(),
		PublishDate: date,
		Title:       "[더클라임 논현점] 탈거 안내",
		Link:        testPublisher + "/p-" + date.String(),
		Image:       []byte("jpeg"),
	}
}

func assertArchiveMatches(t *testing.T, f *fixture, date domain.PostDate, absent string) {
	t.Helper()

	key := domain.Key{Location: "논현", Category: domain.CategoryResetSoon}
	images, err := f.store.Images(key)
	if err != nil {
		t.Fatalf("Images failed: %v", err)
	}
	if len(images) != 1 || images[0] != date.String()+".jpg" {
		t.Fatalf("expected only %s.jpg, got %v", date, images)
	}

	pagePath, err := f.store.PagePath(key)
	if err != nil {
		t.Fatalf("PagePath failed: %v", err)
	}
	page, err := os.ReadFile(pagePath)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if strings.Contains(string(page), absent) {
		t.Fatalf("page still references %s", absent)
	}
}

func TestArtifactWriterReportsStaleRecord(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "논현")
	writer := NewArtifactWriter(f.store, f.store, f.repo, nil)

	if _, err := writer.Write(context.Background(), observation("20240210")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	_, err := writer.Write(context.Background(), observation("20240210"))
	if !errors.Is(err, ports.ErrStaleRecord) {
		t.Fatalf("expected ErrStaleRecord, got %v", err)
	}
	_, err = writer.Write(context.Background(), observation("20240201"))
	if !errors.Is(err, ports.ErrStaleRecord) {
		t.Fatalf("expected ErrStaleRecord for older date, got %v", err)
	}

	rec := f.record(t, "논현", domain.CategoryResetSoon)
	if rec == nil || rec.LatestDate != "20240210" || rec.ImagePath != "논현/탈거임박/20240210.jpg" {
		t.Fatalf("unexpected record %+v", rec)
	}
	assertArchiveMatches(t, f, "20240210", "2024-02-01")
}

// blindRepository hides the stored record from the first Get, as when another
// process commits between the writer's check and its upsert.
type blindRepository struct {
	ports.StatusRepository
	mu    sync.Mutex
	blind bool
}

func (r *blindRepository) Get(ctx context.Context, key domain.Key) (*domain.StatusRecord, error) {
	r.mu.Lock()
	blind := r.blind
	r.blind = false
	r.mu.Unlock()
	if blind {
		return nil, nil
	}
	return r.StatusRepository.Get(ctx, key)
}

func TestArtifactWriterRestoresArchiveWhenUpsertLoses(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "논현")
	if _, err := NewArtifactWriter(f.store, f.store, f.repo, nil).Write(context.Background(), observation("20240210")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	repo := &blindRepository{StatusRepository: f.repo, blind: true}
	_, err := NewArtifactWriter(f.store, f.store, repo, nil).Write(context.Background(), observation("20240201"))
	if !errors.Is(err, ports.ErrStaleRecord) {
		t.Fatalf("expected ErrStaleRecord, got %v", err)
	}

	if rec := f.record(t, "논현", domain.CategoryResetSoon); rec.LatestDate != "20240210" {
		t.Fatalf("record regressed: %+v", rec)
	}
	assertArchiveMatches(t, f, "20240210", "2024-02-01")
}

func TestArtifactWriterRejectsEmptyImage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "논현")
	writer := NewArtifactWriter(f.store, f.store, f.repo, nil)

	obs := observation("20240210")
	obs.Image = nil
	if _, err := writer.Write(context.Background(), obs); err == nil {
		t.Fatalf("expected error for missing image")
	}
	if rec := f.record(t, "논현", domain.CategoryResetSoon); rec != nil {
		t.Fatalf("no record expected, got %+v", rec)
	}
}
