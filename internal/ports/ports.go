package ports

import (
	"context"
	"errors"
	"time"

	"ResetTracker/internal/domain"
)

// Query describes a single search request for a location's feed.
type Query struct {
	Location string
	Text     string
	PageSize int
	Sort     string
}

// PostSearcher returns raw candidate posts for a location query.
type PostSearcher interface {
	Search(ctx context.Context, q Query) ([]domain.CandidatePost, error)
}

// ContentExtractor loads a single post page and returns its body text and first image.
type ContentExtractor interface {
	Extract(ctx context.Context, postID string) (domain.PostContent, error)
}

// ImageFetcher downloads raw image bytes.
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

// TextRecognizer runs OCR over image bytes.
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// ErrStaleRecord is returned by StatusRepository.Upsert when the stored record is
// already as new as, or newer than, the one being written.
var ErrStaleRecord = errors.New("stored status is as new or newer")

// StatusRepository persists status records and per-location run logs.
type StatusRepository interface {
	Get(ctx context.Context, key domain.Key) (*domain.StatusRecord, error)
	ListByLocation(ctx context.Context, location string) ([]domain.StatusRecord, error)
	Upsert(ctx context.Context, record domain.StatusRecord) error
	PurgeLocation(ctx context.Context, location string) error
	SaveRunLog(ctx context.Context, entry domain.RunLog) error
}

// ImageArchive stores the single current image per key.
type ImageArchive interface {
	Put(ctx context.Context, key domain.Key, date domain.PostDate, image []byte) (string, error)
	Prune(ctx context.Context, key domain.Key, keep domain.PostDate) error
}

// PageRenderer regenerates the static status page for a key.
type PageRenderer interface {
	Render(ctx context.Context, record domain.StatusRecord) error
}

// Notifier publishes a run summary to an outbound channel.
type Notifier interface {
	PublishSummary(ctx context.Context, summary domain.RunSummary) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
