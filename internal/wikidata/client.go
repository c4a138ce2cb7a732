// Package wikidata fetches raw entity records from the public Wikidata
// API. The engine treats it as an opaque claims provider; everything it
// returns goes through the store adapter before any resolver sees it.
package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/raphaelgruber/timepivot/internal/store"
)

const (
	defaultBaseURL   = "https://www.wikidata.org"
	defaultUserAgent = "timepivot/1.0 (https://github.com/raphaelgruber/timepivot)"
)

// Config tunes the upstream client.
type Config struct {
	BaseURL string
	// RequestsPerSecond caps the upstream call rate; the public API asks
	// clients to stay polite.
	RequestsPerSecond float64
	Burst             int
	CacheTTL          time.Duration
	Timeout           time.Duration
	// LogBodies dumps response payloads at debug level.
	LogBodies bool
}

// DefaultConfig returns conservative upstream settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:           defaultBaseURL,
		RequestsPerSecond: 2,
		Burst:             4,
		CacheTTL:          15 * time.Minute,
		Timeout:           20 * time.Second,
	}
}

// SearchResult is one hit from the entity search endpoint.
type SearchResult struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Client is a rate-limited, caching Wikidata API client.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	cache   *gocache.Cache
	logger  *slog.Logger
}

// New builds a client. Zero-valued config fields fall back to defaults.
func New(cfg Config, logger *slog.Logger) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cache:   gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger:  logger,
	}
}

// Search queries wbsearchentities for entities matching the text.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{
		"action":   {"wbsearchentities"},
		"search":   {query},
		"language": {"en"},
		"format":   {"json"},
		"limit":    {fmt.Sprintf("%d", limit)},
	}
	body, err := c.get(ctx, "/w/api.php?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	var payload struct {
		Search []SearchResult `json:"search"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return payload.Search, nil
}

// Fetch retrieves the full raw record for one entity ID, serving repeat
// requests from the TTL cache.
func (c *Client) Fetch(ctx context.Context, id string) (*store.RawRecord, error) {
	if cached, ok := c.cache.Get(id); ok {
		return cached.(*store.RawRecord), nil
	}

	body, err := c.get(ctx, "/wiki/Special:EntityData/"+url.PathEscape(id)+".json")
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}

	var payload struct {
		Entities map[string]*store.RawRecord `json:"entities"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode entity %s: %w", id, err)
	}
	// Redirects come back under the canonical ID, not the requested one.
	rec, ok := payload.Entities[id]
	if !ok {
		for _, r := range payload.Entities {
			rec = r
			break
		}
	}
	if rec == nil {
		return nil, fmt.Errorf("entity %s: %w", id, store.ErrNotFound)
	}

	c.cache.Set(id, rec, gocache.DefaultExpiration)
	return rec, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	c.logger.Debug("upstream request",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))
	if c.cfg.LogBodies {
		c.logger.Debug("upstream body", slog.String("body", string(body)))
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, store.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	return body, nil
}
