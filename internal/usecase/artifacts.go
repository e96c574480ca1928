package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ResetTracker/internal/domain"
	"ResetTracker/internal/ports"
)

// ArtifactWriter performs the side effects of a Replace decision.
// The old image is removed only after the record upsert commits, so a failed or
// rejected write never deletes the image the stored record points at.
type ArtifactWriter struct {
	archive    ports.ImageArchive
	pages      ports.PageRenderer
	repository ports.StatusRepository
	now        func() time.Time
	logger     *slog.Logger
}

// NewArtifactWriter wires the archive, page renderer and repository.
func NewArtifactWriter(archive ports.ImageArchive, pages ports.PageRenderer, repo ports.StatusRepository, logger *slog.Logger) *ArtifactWriter {
	return &ArtifactWriter{
		archive:    archive,
		pages:      pages,
		repository: repo,
		now:        time.Now,
		logger:     logger,
	}
}

// Write archives the observation's image, regenerates the page, upserts the record and
// finally prunes older images. ports.ErrStaleRecord is returned when the stored record is
// already as new; the archive is then left matching the stored record.
func (w *ArtifactWriter) Write(ctx context.Context, obs domain.ClassifiedObservation) (domain.StatusRecord, error) {
	if w.archive == nil || w.pages == nil || w.repository == nil {
		return domain.StatusRecord{}, fmt.Errorf("artifact writer misconfigured")
	}
	if len(obs.Image) == 0 {
		return domain.StatusRecord{}, fmt.Errorf("observation %s has no image", obs.Key())
	}

	key := obs.Key()
	current, err := w.repository.Get(ctx, key)
	if err != nil {
		return domain.StatusRecord{}, fmt.Errorf("load record: %w", err)
	}
	if current != nil && !obs.PublishDate.After(current.LatestDate) {
		return domain.StatusRecord{}, fmt.Errorf("write %s at %s: %w", key, obs.PublishDate, ports.ErrStaleRecord)
	}

	imagePath, err := w.archive.Put(ctx, key, obs.PublishDate, obs.Image)
	if err != nil {
		return domain.StatusRecord{}, fmt.Errorf("archive image: %w", err)
	}

	record := domain.StatusRecord{
		Location:     obs.Location,
		Category:     obs.Category,
		LatestDate:   obs.PublishDate,
		ImagePath:    imagePath,
		PostID:       obs.PostID,
		Title:        obs.Title,
		Link:         obs.Link,
		Description:  obs.Description,
		ReconciledAt: w.now().UTC(),
	}

	if err := w.pages.Render(ctx, record); err != nil {
		return domain.StatusRecord{}, fmt.Errorf("render page: %w", err)
	}

	if err := w.repository.Upsert(ctx, record); err != nil {
		if errors.Is(err, ports.ErrStaleRecord) {
			w.restore(ctx, key, obs.PublishDate)
		}
		return domain.StatusRecord{}, fmt.Errorf("persist record: %w", err)
	}

	if err := w.archive.Prune(ctx, key, obs.PublishDate); err != nil {
		return record, fmt.Errorf("prune archive: %w", err)
	}

	if w.logger != nil {
		w.logger.Debug("artifacts written", "key", key.String(), "date", obs.PublishDate.String(), "image", imagePath)
	}
	return record, nil
}

// restore puts the archive back in line with the stored record after a concurrent writer
// won the upsert: the rejected image is removed and the page is rendered from the stored record.
func (w *ArtifactWriter) restore(ctx context.Context, key domain.Key, rejected domain.PostDate) {
	stored, err := w.repository.Get(ctx, key)
	if err != nil || stored == nil {
		w.warn("restore archive: stored record unavailable", "key", key.String(), "error", err)
		return
	}
	if stored.LatestDate == rejected {
		return
	}
	if err := w.archive.Prune(ctx, key, stored.LatestDate); err != nil {
		w.warn("restore archive: prune failed", "key", key.String(), "error", err)
	}
	if err := w.pages.Render(ctx, *stored); err != nil {
		w.warn("restore archive: render failed", "key", key.String(), "error", err)
	}
}

func (w *ArtifactWriter) warn(msg string, args ...any) {
	if w.logger != nil {
		w.logger.Warn(msg, args...)
	}
}
