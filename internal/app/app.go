package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ResetTracker/internal/classifier"
	"ResetTracker/internal/config"
	"ResetTracker/internal/domain"
	"ResetTracker/internal/infrastructure/archive"
	"ResetTracker/internal/infrastructure/feed"
	"ResetTracker/internal/infrastructure/httpserver"
	"ResetTracker/internal/infrastructure/imaging"
	"ResetTracker/internal/infrastructure/naver"
	"ResetTracker/internal/infrastructure/ocr"
	"ResetTracker/internal/infrastructure/parser"
	"ResetTracker/internal/infrastructure/scheduler"
	"ResetTracker/internal/infrastructure/storage"
	"ResetTracker/internal/infrastructure/telegram"
	"ResetTracker/internal/logging"
	"ResetTracker/internal/ports"
	"ResetTracker/internal/postfilter"
	"ResetTracker/internal/source"
	"ResetTracker/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	mode      usecase.Mode
	logger    *slog.Logger
	repo      *storage.SQLRepository
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	server    *httpserver.Server
}

// New validates cfg, opens the store and builds every component.
// A store that cannot be reached is returned as an error.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := scheduler.Validate(cfg.Scheduler.CronExpression); err != nil {
		return nil, err
	}

	tz := cfg.Scheduler.Location()
	httpClient := &http.Client{Timeout: cfg.Pipeline.CallTimeout}

	repo, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open status store: %w", err)
	}

	registry := source.NewRegistry()
	registry.Register(naver.NewSearch(cfg.Source.Naver.APIURL, cfg.Source.Naver.ClientID, cfg.Source.Naver.ClientSecret, httpClient))
	if cfg.Source.RSSURL != "" {
		registry.Register(feed.NewRSS(cfg.Source.RSSURL, tz, httpClient))
	}
	searcher := parser.NewStrategySource(registry, cfg.Source.Strategy, cfg.Source.QueryTemplate, cfg.Source.Brand,
		baseLogger.With("component", "source"))

	extractor := parser.NewBlogExtractor(httpClient, parser.ExtractorOptions{
		PostViewURL: cfg.Extractor.PostViewURL,
		BlogID:      cfg.Extractor.BlogID,
		SizeToken:   cfg.Extractor.ImageSizeToken,
	}, baseLogger.With("component", "extractor"))

	var crop classifier.CropFunc
	if cfg.OCR.Crop.Enabled {
		crop = imaging.Cropper(imaging.Region{TopRatio: cfg.OCR.Crop.TopRatio, MaxWidth: cfg.OCR.Crop.MaxWidth})
	}
	imageClassifier := classifier.New(classifier.Deps{
		Fetcher:    imaging.NewHTTPFetcher(httpClient),
		Recognizer: newRecognizer(cfg.OCR),
		Crop:       crop,
		Timeout:    cfg.OCR.Timeout,
		Logger:     baseLogger.With("component", "classifier"),
	})

	store := archive.New(archive.Options{
		Root:          cfg.Archive.Root,
		PublicBaseURL: cfg.Archive.PublicBaseURL,
		Brand:         cfg.Source.Brand,
		Location:      tz,
	})
	writer := usecase.NewArtifactWriter(store, store, repo, baseLogger.With("component", "artifacts"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		tg, err := telegram.NewNotifier(telegram.Options{
			BotToken: cfg.Notifications.Telegram.BotToken,
			ChatID:   cfg.Notifications.Telegram.ChatID,
			Location: tz,
		})
		if err != nil {
			baseLogger.Warn("telegram notifications disabled", "error", err)
		} else {
			notifier = tg
		}
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Searcher: searcher,
		Filter: postfilter.New(postfilter.Rules{
			Publisher: cfg.Source.Publisher,
			Brand:     cfg.Source.Brand,
			Suffix:    cfg.Source.Suffix,
		}),
		Extractor:   extractor,
		Classifier:  imageClassifier,
		Repository:  repo,
		Writer:      writer,
		Notifier:    notifier,
		Locations:   cfg.Locations,
		PageSize:    cfg.Source.PageSize,
		Sort:        cfg.Source.Sort,
		Concurrency: cfg.Pipeline.Concurrency,
		CallTimeout: cfg.Pipeline.CallTimeout,
		TimeZone:    tz,
		Logger:      baseLogger.With("component", "pipeline"),
		NewRunID:    uuid.NewString,
	})

	mode := usecase.Mode(cfg.Pipeline.Mode)
	cron := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, tz, cfg.Scheduler.RunOnStart)

	app := &Application{
		cfg:       cfg,
		mode:      mode,
		logger:    baseLogger,
		repo:      repo,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(cron, pipeline, mode, baseLogger.With("component", "scheduler")),
	}
	if cfg.Server.Addr != "" {
		app.server = httpserver.New(httpserver.Options{
			Addr:        cfg.Server.Addr,
			ArchiveRoot: cfg.Archive.Root,
			Locations:   cfg.Locations,
		}, repo, baseLogger.With("component", "http"))
	}
	return app, nil
}

func newRecognizer(cfg config.OCRConfig) ports.TextRecognizer {
	if cfg.Backend == "http" {
		return ocr.NewHTTPClient(cfg.Endpoint, cfg.APIKey, cfg.Language)
	}
	return ocr.NewTesseract(cfg.TesseractPath, cfg.Language)
}

// RunOnce performs a single pipeline execution in the configured mode.
func (a *Application) RunOnce(ctx context.Context) (domain.RunSummary, error) {
	return a.pipeline.Run(ctx, a.mode)
}

// Serve starts the scheduler and HTTP server and blocks until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if a.server != nil {
		a.server.Start()
	}
	a.logger.Info("reset tracker started",
		"cron", a.cfg.Scheduler.CronExpression,
		"timezone", a.cfg.Scheduler.Location().String(),
		"mode", string(a.mode),
		"locations", len(a.cfg.Locations),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("http shutdown", "error", err)
		}
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler shutdown", "error", err)
	}
	return nil
}

// Close releases the status store.
func (a *Application) Close() error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Close()
}
