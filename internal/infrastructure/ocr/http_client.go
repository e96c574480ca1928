package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"ResetTracker/internal/ports"
)

// HTTPClient sends images to an OCR service and reads back the recognized text.
type HTTPClient struct {
	endpoint string
	apiKey   string
	language string
	http     *http.Client
}

var _ ports.TextRecognizer = (*HTTPClient)(nil)

// NewHTTPClient creates a reusable OCR client.
func NewHTTPClient(endpoint, apiKey, language string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		language: language,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Recognize posts the raw image and returns the service's text.
func (c *HTTPClient) Recognize(ctx context.Context, image []byte) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("ocr endpoint is not configured")
	}

	target, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if c.language != "" {
		query := target.Query()
		query.Set("lang", c.language)
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(image))
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return "", fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		_ = resp.Body.Close()
		return "", fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return "", fmt.Errorf("close response body: %w", err)
	}

	return payload.Text, nil
}
