package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ResetTracker/internal/classifier"
	"ResetTracker/internal/domain"
	"ResetTracker/internal/ports"
	"ResetTracker/internal/postfilter"
	"ResetTracker/internal/reconcile"
)

// Mode selects how winners are reconciled against stored state.
type Mode string

const (
	// ModeLatest keeps the newest record per key across runs.
	ModeLatest Mode = "latest"
	// ModeResync purges a location's records and writes this run's winners unconditionally.
	ModeResync Mode = "resync"
)

const defaultConcurrency = 4

// PostFilter keeps the posts that belong to a location.
type PostFilter interface {
	Filter(posts []domain.CandidatePost, location string) []domain.CandidatePost
}

// ImageClassifier maps a post image to a category.
type ImageClassifier interface {
	Classify(ctx context.Context, imageURL string) (classifier.Result, error)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Searcher    ports.PostSearcher
	Filter      PostFilter
	Extractor   ports.ContentExtractor
	Classifier  ImageClassifier
	Repository  ports.StatusRepository
	Writer      *ArtifactWriter
	Notifier    ports.Notifier
	Locations   []string
	PageSize    int
	Sort        string
	Concurrency int
	CallTimeout time.Duration
	TimeZone    *time.Location
	Logger      *slog.Logger
	NewRunID    func() string
}

// Pipeline runs ingestion, classification and reconciliation across locations.
type Pipeline struct {
	searcher    ports.PostSearcher
	filter      PostFilter
	extractor   ports.ContentExtractor
	classifier  ImageClassifier
	repository  ports.StatusRepository
	writer      *ArtifactWriter
	notifier    ports.Notifier
	locations   []string
	pageSize    int
	sort        string
	concurrency int
	callTimeout time.Duration
	tz          *time.Location
	logger      *slog.Logger
	newRunID    func() string
	now         func() time.Time
	locks       *reconcile.KeyedMutex
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	tz := deps.TimeZone
	if tz == nil {
		tz = time.UTC
	}
	newRunID := deps.NewRunID
	if newRunID == nil {
		newRunID = func() string { return time.Now().UTC().Format("20060102T150405") }
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Pipeline{
		searcher:    deps.Searcher,
		filter:      deps.Filter,
		extractor:   deps.Extractor,
		classifier:  deps.Classifier,
		repository:  deps.Repository,
		writer:      deps.Writer,
		notifier:    deps.Notifier,
		locations:   deps.Locations,
		pageSize:    deps.PageSize,
		sort:        deps.Sort,
		concurrency: concurrency,
		callTimeout: deps.CallTimeout,
		tz:          tz,
		logger:      logger,
		newRunID:    newRunID,
		now:         time.Now,
		locks:       reconcile.NewKeyedMutex(),
	}
}

// Run processes every configured location once. Per-location and per-post failures are
// logged and counted; only a misconfigured pipeline or a cancelled context returns an error.
func (p *Pipeline) Run(ctx context.Context, mode Mode) (domain.RunSummary, error) {
	if p.searcher == nil || p.filter == nil || p.extractor == nil || p.classifier == nil ||
		p.repository == nil || p.writer == nil {
		return domain.RunSummary{}, fmt.Errorf("pipeline misconfigured")
	}
	if mode == "" {
		mode = ModeLatest
	}
	if mode != ModeLatest && mode != ModeResync {
		return domain.RunSummary{}, fmt.Errorf("unknown reconcile mode %q", mode)
	}

	summary := domain.RunSummary{
		RunID:     p.newRunID(),
		StartedAt: p.now().In(p.tz),
	}
	p.logger.Info("run started", "run_id", summary.RunID, "mode", string(mode), "locations", len(p.locations))

	for _, location := range p.locations {
		if err := ctx.Err(); err != nil {
			summary.Duration = p.now().Sub(summary.StartedAt)
			return summary, fmt.Errorf("run interrupted: %w", err)
		}

		summary.Locations++
		if err := p.processLocation(ctx, summary.RunID, location, mode, &summary); err != nil {
			summary.FailedLocations = append(summary.FailedLocations, location)
			p.logger.Error("location failed", "location", location, "error", err)
		}
	}

	summary.Duration = p.now().Sub(summary.StartedAt)
	p.logger.Info("run completed",
		"run_id", summary.RunID,
		"duration", summary.Duration.String(),
		"locations", summary.Locations,
		"failed_locations", len(summary.FailedLocations),
		"candidates", summary.Candidates,
		"accepted", summary.Accepted,
		"skipped", summary.Skipped,
		"classified", summary.Classified,
		"replaced", summary.Replaced,
		"unchanged", summary.Unchanged,
		"failed", summary.Failed,
	)

	if p.notifier != nil {
		notifyCtx, cancel := p.callContext(ctx)
		if err := p.notifier.PublishSummary(notifyCtx, summary); err != nil {
			p.logger.Warn("publish summary failed", "error", err)
		}
		cancel()
	}

	return summary, nil
}

type pendingPost struct {
	post   domain.CandidatePost
	postID string
	date   domain.PostDate
}

func (p *Pipeline) processLocation(ctx context.Context, runID, location string, mode Mode, summary *domain.RunSummary) error {
	log := p.logger.With("location", location)

	searchCtx, cancel := p.callContext(ctx)
	posts, err := p.searcher.Search(searchCtx, ports.Query{Location: location, PageSize: p.pageSize, Sort: p.sort})
	cancel()
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	summary.Candidates += len(posts)

	accepted := p.filter.Filter(posts, location)
	summary.Accepted += len(accepted)

	var existing []domain.StatusRecord
	if mode == ModeLatest {
		listCtx, cancel := p.callContext(ctx)
		existing, err = p.repository.ListByLocation(listCtx, location)
		cancel()
		if err != nil {
			return fmt.Errorf("load records: %w", err)
		}
	}

	// a post that already backs a record can only reproduce it
	known := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		known[rec.PostID] = struct{}{}
	}

	pending := make([]pendingPost, 0, len(accepted))
	for _, post := range accepted {
		date, err := domain.ParsePostDate(post.PublishDate)
		if err != nil {
			summary.Failed++
			log.Warn("skip post with bad date", "link", post.Link, "error", err)
			continue
		}
		postID := post.PostID()
		if postID == "" {
			summary.Failed++
			log.Warn("skip post without id", "link", post.Link)
			continue
		}
		if _, seen := known[postID]; seen {
			summary.Skipped++
			continue
		}
		if mode == ModeLatest && !reconcile.CanSupersede(date, location, existing) {
			summary.Skipped++
			continue
		}
		pending = append(pending, pendingPost{post: post, postID: postID, date: date})
	}

	observations, failed := p.classifyAll(ctx, location, pending)
	summary.Failed += failed
	summary.Classified += len(observations)

	winners := reconcile.SelectLatest(observations)

	if mode == ModeResync {
		purgeCtx, cancel := p.callContext(ctx)
		err := p.repository.PurgeLocation(purgeCtx, location)
		cancel()
		if err != nil {
			return fmt.Errorf("purge: %w", err)
		}
		log.Info("records purged for resync")
	}

	categories := make([]domain.Category, 0, len(winners))
	for _, obs := range winners {
		categories = append(categories, obs.Category)
		p.reconcileOne(ctx, obs, mode, summary, log)
	}

	logCtx, cancel := p.callContext(ctx)
	err = p.repository.SaveRunLog(logCtx, domain.RunLog{
		Location:   location,
		RunID:      runID,
		Status:     domain.RunCompleted,
		UpdatedAt:  p.now().In(p.tz),
		Categories: categories,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("save run log: %w", err)
	}

	log.Info("location processed", "posts", len(posts), "accepted", len(accepted), "winners", len(winners))
	return nil
}

// classifyAll extracts and classifies posts concurrently. Results keep input order so
// SelectLatest's first-seen tie break stays deterministic.
func (p *Pipeline) classifyAll(ctx context.Context, location string, pending []pendingPost) ([]domain.ClassifiedObservation, int) {
	if len(pending) == 0 {
		return nil, 0
	}

	results := make([]*domain.ClassifiedObservation, len(pending))
	failures := make([]bool, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := range pending {
		g.Go(func() error {
			results[i], failures[i] = p.classifyOne(gctx, location, pending[i])
			return nil
		})
	}
	_ = g.Wait()

	var (
		observations []domain.ClassifiedObservation
		failed       int
	)
	for i, obs := range results {
		if failures[i] {
			failed++
		}
		if obs != nil {
			observations = append(observations, *obs)
		}
	}
	return observations, failed
}

func (p *Pipeline) classifyOne(ctx context.Context, location string, item pendingPost) (*domain.ClassifiedObservation, bool) {
	log := p.logger.With("location", location, "post_id", item.postID)

	extractCtx, cancel := p.callContext(ctx)
	content, err := p.extractor.Extract(extractCtx, item.postID)
	cancel()
	if err != nil {
		log.Warn("extract failed", "error", err)
		return nil, true
	}
	if content.ImageURL == "" {
		log.Debug("post has no image")
		return nil, false
	}

	result, err := p.classifier.Classify(ctx, content.ImageURL)
	if err != nil {
		log.Warn("classify failed", "error", err)
		return nil, true
	}
	if !result.Matched {
		log.Debug("no status marker found")
		return nil, false
	}

	return &domain.ClassifiedObservation{
		Location:    location,
		Category:    result.Category,
		PostID:      item.postID,
		PublishDate: item.date,
		Title:       postfilter.CleanTitle(item.post.Title),
		Link:        item.post.Link,
		Description: postfilter.CleanTitle(item.post.Description),
		BodyText:    content.Body,
		ImageURL:    content.ImageURL,
		Image:       result.Image,
	}, false
}

func (p *Pipeline) reconcileOne(ctx context.Context, obs domain.ClassifiedObservation, mode Mode, summary *domain.RunSummary, log *slog.Logger) {
	key := obs.Key()
	log = log.With("category", string(obs.Category), "date", obs.PublishDate.String())

	unlock := p.locks.Lock(key)
	defer unlock()

	var current *domain.StatusRecord
	if mode == ModeLatest {
		getCtx, cancel := p.callContext(ctx)
		rec, err := p.repository.Get(getCtx, key)
		cancel()
		if err != nil {
			summary.Failed++
			log.Warn("load record failed", "error", err)
			return
		}
		current = rec
	}

	if reconcile.Decide(obs, current) == reconcile.NoOp {
		summary.Unchanged++
		log.Debug("already up to date", "stored", current.LatestDate.String())
		return
	}

	writeCtx, cancel := p.callContext(ctx)
	_, err := p.writer.Write(writeCtx, obs)
	cancel()
	switch {
	case errors.Is(err, ports.ErrStaleRecord):
		summary.Unchanged++
		log.Debug("record advanced concurrently")
	case err != nil:
		summary.Failed++
		log.Warn("write artifacts failed", "error", err)
	default:
		summary.Replaced++
		log.Info("status replaced", "post_id", obs.PostID)
	}
}

func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.callTimeout)
}
