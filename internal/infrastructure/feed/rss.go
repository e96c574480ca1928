// Package feed implements a candidate source over the publisher's RSS feed.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"ResetTracker/internal/domain"
	"ResetTracker/internal/ports"
	"ResetTracker/internal/source"
)

// RSS pulls the whole feed; it is not queryable, so the filter does the narrowing.
type RSS struct {
	client   *http.Client
	feedURL  string
	location *time.Location
}

var _ source.Strategy = (*RSS)(nil)

// NewRSS wires the feed URL; dates are rendered in loc (UTC when nil).
func NewRSS(feedURL string, loc *time.Location, client *http.Client) *RSS {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &RSS{client: client, feedURL: feedURL, location: loc}
}

// Name identifies the strategy inside the registry.
func (r *RSS) Name() string {
	return "rss"
}

// Search returns up to q.PageSize feed items, newest first as published.
func (r *RSS) Search(ctx context.Context, q ports.Query) ([]domain.CandidatePost, error) {
	if r.feedURL == "" {
		return nil, fmt.Errorf("rss feed url is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	author := strings.TrimSpace(parsed.Link)
	posts := make([]domain.CandidatePost, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if q.PageSize > 0 && len(posts) >= q.PageSize {
			break
		}

		var published time.Time
		switch {
		case item.PublishedParsed != nil:
			published = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			published = *item.UpdatedParsed
		default:
			continue
		}

		posts = append(posts, domain.CandidatePost{
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			PublishDate: domain.PostDateOf(published.In(r.location)).String(),
			Author:      author,
			Description: strings.TrimSpace(item.Description),
		})
	}
	return posts, nil
}
