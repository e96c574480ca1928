// Package classifier turns a post image into a status category via OCR.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ResetTracker/internal/domain"
	"ResetTracker/internal/ports"
)

// ErrNoImage is returned when there is nothing to classify.
var ErrNoImage = errors.New("no image to classify")

// CropFunc narrows an image to the region where status text is expected.
type CropFunc func(image []byte) ([]byte, error)

// Deps wires the classifier's collaborators.
type Deps struct {
	Fetcher    ports.ImageFetcher
	Recognizer ports.TextRecognizer
	Crop       CropFunc
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Result carries the category (if any) and the original image bytes.
type Result struct {
	Category domain.Category
	Matched  bool
	Text     string
	Image    []byte
}

// Classifier is stateless and safe for concurrent use.
type Classifier struct {
	fetcher    ports.ImageFetcher
	recognizer ports.TextRecognizer
	crop       CropFunc
	timeout    time.Duration
	logger     *slog.Logger
}

// New builds a Classifier.
func New(deps Deps) *Classifier {
	return &Classifier{
		fetcher:    deps.Fetcher,
		recognizer: deps.Recognizer,
		crop:       deps.Crop,
		timeout:    deps.Timeout,
		logger:     deps.Logger,
	}
}

// Classify fetches imageURL and maps its recognized text to a category.
// A fetch failure is returned; an OCR failure is logged and reported as no match.
func (c *Classifier) Classify(ctx context.Context, imageURL string) (Result, error) {
	if strings.TrimSpace(imageURL) == "" {
		return Result{}, ErrNoImage
	}
	if c.fetcher == nil || c.recognizer == nil {
		return Result{}, fmt.Errorf("classifier misconfigured")
	}

	image, err := c.fetch(ctx, imageURL)
	if err != nil {
		return Result{}, fmt.Errorf("fetch image: %w", err)
	}
	if len(image) == 0 {
		return Result{}, ErrNoImage
	}

	result := Result{Image: image}

	input := image
	if c.crop != nil {
		cropped, cErr := c.crop(image)
		if cErr != nil {
			c.debug("crop skipped", "url", imageURL, "error", cErr)
		} else {
			input = cropped
		}
	}

	text, err := c.recognize(ctx, input)
	if err != nil {
		c.warn("ocr failed", "url", imageURL, "error", err)
		return result, nil
	}

	result.Text = strings.ToUpper(text)
	result.Category, result.Matched = MatchCategory(result.Text)
	return result, nil
}

func (c *Classifier) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.fetcher.Fetch(ctx, imageURL)
}

func (c *Classifier) recognize(ctx context.Context, image []byte) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.recognizer.Recognize(ctx, image)
}

func (c *Classifier) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Classifier) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Classifier) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
