package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default search parameters, mirroring what the search API itself defaults to.
const (
	defaultSearchEndpoint   = "https://api.tavily.com/search"
	defaultSearchMaxResults = 5
	searchTimeout           = 30 * time.Second
	maxSearchResponseSize   = 1 << 20 // 1MB
)

// SearchClient calls a Tavily-style JSON search API. A zero APIKey means web
// search is unavailable; the tool reports that to the model as text rather
// than failing the turn.
type SearchClient struct {
	APIKey     string
	Endpoint   string       // defaults to the Tavily endpoint
	HTTPClient *http.Client // defaults to a client with searchTimeout
}

// Available reports whether the client is configured with an API key.
func (c *SearchClient) Available() bool {
	return c != nil && c.APIKey != ""
}

type searchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	Topic      string `json:"topic,omitempty"`
}

// Search runs one query and returns the raw JSON result body. The model
// consumes the JSON directly, so no result parsing happens here.
func (c *SearchClient) Search(ctx context.Context, query string, maxResults int, topic string) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("search API key is not configured")
	}
	if maxResults <= 0 {
		maxResults = defaultSearchMaxResults
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = defaultSearchEndpoint
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: searchTimeout}
	}

	body, err := json.Marshal(searchRequest{
		APIKey:     c.APIKey,
		Query:      query,
		MaxResults: maxResults,
		Topic:      topic,
	})
	if err != nil {
		return "", fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchResponseSize))
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search API returned %d: %s", resp.StatusCode, data)
	}
	return string(data), nil
}
