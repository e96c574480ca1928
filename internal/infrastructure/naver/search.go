// Package naver implements the Naver Open API blog search strategy.
package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ResetTracker/internal/domain"
	"ResetTracker/internal/ports"
	"ResetTracker/internal/source"
)

const (
	defaultAPIURL   = "https://openapi.naver.com/v1/search/blog"
	defaultPageSize = 100
	maxPageSize     = 100
	defaultSort     = "date"
)

// Search queries the blog search endpoint with client credentials.
type Search struct {
	apiURL       string
	clientID     string
	clientSecret string
	client       *http.Client
}

var _ source.Strategy = (*Search)(nil)

// NewSearch wires credentials; nil client gets a 15s timeout.
func NewSearch(apiURL, clientID, clientSecret string, client *http.Client) *Search {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Search{
		apiURL:       apiURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       client,
	}
}

// Name identifies the strategy inside the registry.
func (s *Search) Name() string {
	return "naver"
}

type searchResponse struct {
	Total int          `json:"total"`
	Items []searchItem `json:"items"`
}

type searchItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	BloggerName string `json:"bloggername"`
	BloggerLink string `json:"bloggerlink"`
	PostDate    string `json:"postdate"`
}

// Search returns one page of results sorted as requested.
func (s *Search) Search(ctx context.Context, q ports.Query) ([]domain.CandidatePost, error) {
	if s.clientID == "" || s.clientSecret == "" {
		return nil, fmt.Errorf("naver search misconfigured")
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("empty search query")
	}

	endpoint, err := buildSearchURL(s.apiURL, q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", s.clientID)
	req.Header.Set("X-Naver-Client-Secret", s.clientSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("naver search error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	posts := make([]domain.CandidatePost, 0, len(body.Items))
	for _, item := range body.Items {
		posts = append(posts, domain.CandidatePost{
			Title:       item.Title,
			Link:        item.Link,
			PublishDate: item.PostDate,
			Author:      item.BloggerLink,
			Description: item.Description,
		})
	}
	return posts, nil
}

func buildSearchURL(base string, q ports.Query) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid search url %s: %w", base, err)
	}

	size := q.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	sort := q.Sort
	if sort == "" {
		sort = defaultSort
	}

	query := parsed.Query()
	query.Set("query", q.Text)
	query.Set("display", strconv.Itoa(size))
	query.Set("start", "1")
	query.Set("sort", sort)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
