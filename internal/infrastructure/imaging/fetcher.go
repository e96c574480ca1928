package imaging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"ResetTracker/internal/ports"
)

const maxImageBytes = 20 << 20

// HTTPFetcher downloads images over HTTP.
type HTTPFetcher struct {
	client *http.Client
}

var _ ports.ImageFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher wires an HTTP client; nil gets a client with a 20s timeout.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTTPFetcher{client: client}
}

// Fetch returns the body of imageURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ResetTracker/1.0")
	// pstatic.net rejects hotlinked image requests without a blog referer.
	req.Header.Set("Referer", "https://blog.naver.com/")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image host returned %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return data, nil
}
