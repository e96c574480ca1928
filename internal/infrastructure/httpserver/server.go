// Package httpserver exposes the archive and current statuses over HTTP.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"

	"ResetTracker/internal/domain"
)

// StatusLister is the read side of the status repository.
type StatusLister interface {
	ListByLocation(ctx context.Context, location string) ([]domain.StatusRecord, error)
}

// Options configures the server.
type Options struct {
	Addr        string
	ArchiveRoot string
	Locations   []string
}

// Server serves archived pages and a small JSON API.
type Server struct {
	engine    *gin.Engine
	http      *http.Server
	records   StatusLister
	locations map[string]struct{}
	logger    *slog.Logger
}

// StatusView is the JSON shape of a status record.
type StatusView struct {
	Location     string    `json:"location"`
	Category     string    `json:"category"`
	Label        string    `json:"label"`
	LatestDate   string    `json:"latestDate"`
	ImagePath    string    `json:"imagePath"`
	PagePath     string    `json:"pagePath"`
	PostID       string    `json:"postId"`
	Title        string    `json:"title"`
	Link         string    `json:"link"`
	ReconciledAt time.Time `json:"reconciledAt"`
}

// New builds the router. An empty Locations list accepts any location.
func New(opts Options, records StatusLister, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		engine:    gin.New(),
		records:   records,
		locations: make(map[string]struct{}, len(opts.Locations)),
		logger:    logger,
	}
	for _, loc := range opts.Locations {
		s.locations[loc] = struct{}{}
	}

	s.engine.Use(gin.Recovery(), s.requestLog())
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/api/status/:location", s.status)
	if opts.ArchiveRoot != "" {
		s.engine.NoRoute(gin.WrapH(archiveFiles(http.Dir(opts.ArchiveRoot))))
	}

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens in the background; listener errors other than shutdown are logged.
func (s *Server) Start() {
	go func() {
		s.logger.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "error", err)
		}
	}()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	location := c.Param("location")
	if len(s.locations) > 0 {
		if _, ok := s.locations[location]; !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown location"})
			return
		}
	}

	records, err := s.records.ListByLocation(c.Request.Context(), location)
	if err != nil {
		s.logger.Error("list statuses failed", "location", location, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status lookup failed"})
		return
	}

	views := make([]StatusView, 0, len(records))
	for _, rec := range records {
		views = append(views, StatusView{
			Location:     rec.Location,
			Category:     string(rec.Category),
			Label:        rec.Category.Label(),
			LatestDate:   rec.LatestDate.String(),
			ImagePath:    rec.ImagePath,
			PagePath:     path.Join(rec.Location, rec.Category.Label()) + "/",
			PostID:       rec.PostID,
			Title:        rec.Title,
			Link:         rec.Link,
			ReconciledAt: rec.ReconciledAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"location": location, "statuses": views})
}

// archiveFiles serves archived images and pages; directories without an index page are 404.
func archiveFiles(root http.FileSystem) http.Handler {
	files := http.FileServer(root)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		f, err := root.Open(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		info, err := f.Stat()
		_ = f.Close()
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if info.IsDir() {
			index, err := root.Open(path.Join(name, "index.html"))
			if err != nil {
				http.NotFound(w, r)
				return
			}
			_ = index.Close()
		}
		files.ServeHTTP(w, r)
	})
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
