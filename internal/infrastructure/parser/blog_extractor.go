package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"ResetTracker/internal/domain"
	"ResetTracker/internal/ports"
)

const (
	defaultPostViewURL = "https://blog.naver.com/PostView.naver"
	defaultSizeToken   = "w773"
	sizeParam          = "type"
	maxPageBytes       = 8 << 20
)

// ExtractorOptions configures where post pages live and how images are sized.
type ExtractorOptions struct {
	PostViewURL string
	BlogID      string
	SizeToken   string
}

// BlogExtractor loads a blog post page and pulls its body text and first image.
type BlogExtractor struct {
	client      *http.Client
	postViewURL string
	blogID      string
	sizeToken   string
	logger      *slog.Logger
}

var _ ports.ContentExtractor = (*BlogExtractor)(nil)

// NewBlogExtractor wires an HTTP client; nil gets a client with a 20s timeout.
func NewBlogExtractor(client *http.Client, opts ExtractorOptions, logger *slog.Logger) *BlogExtractor {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if opts.PostViewURL == "" {
		opts.PostViewURL = defaultPostViewURL
	}
	if opts.SizeToken == "" {
		opts.SizeToken = defaultSizeToken
	}
	return &BlogExtractor{
		client:      client,
		postViewURL: opts.PostViewURL,
		blogID:      opts.BlogID,
		sizeToken:   opts.SizeToken,
		logger:      logger,
	}
}

// Extract returns the plain-text body and the normalized URL of the first post image.
// Any error means the post contributes nothing; callers skip it rather than abort.
func (b *BlogExtractor) Extract(ctx context.Context, postID string) (domain.PostContent, error) {
	if strings.TrimSpace(postID) == "" {
		return domain.PostContent{}, fmt.Errorf("empty post id")
	}

	pageURL, err := buildPostViewURL(b.postViewURL, b.blogID, postID)
	if err != nil {
		return domain.PostContent{}, err
	}

	raw, err := b.fetchPage(ctx, pageURL)
	if err != nil {
		return domain.PostContent{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return domain.PostContent{}, fmt.Errorf("parse document: %w", err)
	}

	content := parsePost(doc, postID, b.sizeToken)
	if content.Body == "" {
		content.Body = readableText(raw, pageURL)
	}

	b.debug("post extracted", "post_id", postID, "body_len", len(content.Body), "has_image", content.ImageURL != "")
	return content, nil
}

func (b *BlogExtractor) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ResetTracker/1.0)")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blog returned %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return raw, nil
}

func parsePost(doc *goquery.Document, postID, sizeToken string) domain.PostContent {
	root := doc.Find("#post-view" + postID)
	if root.Length() == 0 {
		root = doc.Selection
	}

	body := collapseSpace(root.Find(".se-main-container").First().Text())

	var imageURL string
	root.Find(".se-image-resource").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, _ := img.Attr("src")
		if strings.TrimSpace(src) == "" {
			src, _ = img.Attr("data-lazy-src")
		}
		if strings.TrimSpace(src) == "" {
			return true
		}
		imageURL = NormalizeImageURL(strings.TrimSpace(src), sizeToken)
		return false
	})

	return domain.PostContent{Body: body, ImageURL: imageURL}
}

func readableText(raw []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(bytes.NewReader(raw), parsed)
	if err != nil {
		return ""
	}
	return collapseSpace(article.TextContent)
}

// NormalizeImageURL forces the size parameter to token, replacing or appending it.
func NormalizeImageURL(raw, token string) string {
	if token == "" {
		token = defaultSizeToken
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query := parsed.Query()
	query.Set(sizeParam, token)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func buildPostViewURL(base, blogID, postID string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid post view url %s: %w", base, err)
	}

	query := parsed.Query()
	if blogID != "" {
		query.Set("blogId", blogID)
	}
	query.Set("logNo", postID)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (b *BlogExtractor) debug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}
