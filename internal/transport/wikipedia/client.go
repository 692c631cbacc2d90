// Package wikipedia fetches article plain text through the MediaWiki action
// API.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quizgen/internal/domain"
	"github.com/kailas-cloud/quizgen/internal/metrics"
)

// maxResponseBytes bounds a single API response read.
const maxResponseBytes = 8 << 20

// Config holds the client settings.
type Config struct {
	BaseURL   string // default: https://en.wikipedia.org/w/api.php
	UserAgent string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Client fetches pages from the MediaWiki API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *zap.Logger
}

// NewClient creates a Wikipedia client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://en.wikipedia.org/w/api.php"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

// apiResponse mirrors the parts of the action API query response we consume.
type apiResponse struct {
	Query struct {
		Pages map[string]struct {
			PageID  int64  `json:"pageid"`
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Missing *struct {
			} `json:"missing,omitempty"`
		} `json:"pages"`
	} `json:"query"`
}

// FetchPage retrieves the plain-text extract of the article titled title.
// Returns domain.ErrPageNotFound when no article exists (never retried
// upstream) and wraps transient HTTP failures in domain.ErrServiceUnavailable.
func (c *Client) FetchPage(ctx context.Context, title string) (domain.Page, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"explaintext": {"1"},
		"redirects":   {"1"},
		"format":      {"json"},
		"titles":      {title},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Page{}, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.PageFetchTotal.WithLabelValues("error").Inc()
		return domain.Page{}, fmt.Errorf("fetch %q: %v: %w", title, err, domain.ErrServiceUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.PageFetchTotal.WithLabelValues("error").Inc()
		return domain.Page{}, fmt.Errorf("read response for %q: %v: %w", title, err, domain.ErrServiceUnavailable)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.PageFetchTotal.WithLabelValues("error").Inc()
		return domain.Page{}, fmt.Errorf("wikipedia API status %d for %q: %w",
			resp.StatusCode, title, domain.ErrServiceUnavailable)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.PageFetchTotal.WithLabelValues("error").Inc()
		return domain.Page{}, fmt.Errorf("parse response for %q: %v: %w", title, err, domain.ErrServiceUnavailable)
	}

	for id, page := range parsed.Query.Pages {
		if id == "-1" || page.Missing != nil || page.Extract == "" {
			break
		}
		metrics.PageFetchTotal.WithLabelValues("success").Inc()
		c.logger.Debug("Fetched Wikipedia page",
			zap.String("title", page.Title),
			zap.Int64("page_id", page.PageID),
			zap.Int("bytes", len(page.Extract)),
		)
		return domain.Page{
			Key:       domain.NormalizeConcept(title),
			Title:     page.Title,
			PageID:    page.PageID,
			Content:   page.Extract,
			FetchedAt: time.Now().UTC(),
		}, nil
	}

	metrics.PageFetchTotal.WithLabelValues("not_found").Inc()
	return domain.Page{}, fmt.Errorf("no article for %q: %w", title, domain.ErrPageNotFound)
}
