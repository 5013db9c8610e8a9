// Package exercisedb is a client for the public ExerciseDB catalog.
//
// The API has shipped several incompatible shapes over time, so Search walks
// a chain of endpoints (v2 search, v1 by name, v1 full list) and normalizes
// whatever item shape comes back into models.ExerciseLookup.
package exercisedb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/fitlog/internal/config"
	"github.com/claude/fitlog/internal/metrics"
	"github.com/claude/fitlog/internal/models"
	"github.com/coocood/freecache"
)

// Source is the external_source value stamped on every result.
const Source = models.LookupSourceExerciseDB

// Client searches ExerciseDB. Successful results are cached in memory.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	limit        int
	apiKeyHeader string
	apiKey       string
	host         string
	cache        *freecache.Cache
	cacheTTL     time.Duration
	metrics      *metrics.Manager
	log          *slog.Logger
}

// New creates a Client from config. m must not be nil.
func New(cfg config.ExerciseDBConfig, m *metrics.Manager, log *slog.Logger) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		limit:        cfg.Limit,
		apiKeyHeader: cfg.APIKeyHeader,
		apiKey:       cfg.APIKey,
		host:         cfg.Host,
		cacheTTL:     cfg.CacheTTL,
		metrics:      m,
		log:          log,
	}
	if cfg.CacheSizeMB > 0 {
		c.cache = freecache.NewCache(cfg.CacheSizeMB * 1024 * 1024)
	}
	return c
}

// Search returns up to limit exercises matching query. Each endpoint in the
// chain is tried until one yields results; an error is returned only when
// every endpoint failed.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.ExerciseLookup, error) {
	if limit <= 0 {
		limit = c.limit
	}

	// Keyed on the exact query sent upstream.
	key := []byte(query + "|" + strconv.Itoa(limit))
	if cached, ok := c.fromCache(key); ok {
		return cached, nil
	}

	steps := []struct {
		name string
		run  func() ([]map[string]any, error)
	}{
		{"v2 search", func() ([]map[string]any, error) {
			params := url.Values{"query": {query}, "limit": {strconv.Itoa(limit)}}
			return c.fetch(ctx, "/v2/exercises/search", params)
		}},
		{"v1 name", func() ([]map[string]any, error) {
			return c.fetch(ctx, "/exercises/name/"+url.PathEscape(query), nil)
		}},
		{"v1 list", func() ([]map[string]any, error) {
			items, err := c.fetch(ctx, "/exercises", nil)
			return items[:min(len(items), limit)], err
		}},
	}

	var failures int
	var lastErr error
	for _, step := range steps {
		items, err := step.run()
		if err != nil {
			failures++
			lastErr = err
			c.log.Debug("exercisedb step failed", "step", step.name, "error", err)
			continue
		}
		if results := normalizeMany(items, limit); len(results) > 0 {
			c.toCache(key, results)
			return results, nil
		}
	}
	if failures == len(steps) {
		return nil, fmt.Errorf("exercisedb: all endpoints failed: %w", lastErr)
	}
	return []models.ExerciseLookup{}, nil
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]map[string]any, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("exercisedb: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKeyHeader != "" && c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}
	if c.host != "" {
		req.Header.Set("X-RapidAPI-Host", c.host)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exercisedb: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("exercisedb: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exercisedb: %s returned %d", path, resp.StatusCode)
	}

	items, err := decodeItems(body)
	if err != nil {
		return nil, fmt.Errorf("exercisedb: %s: %w", path, err)
	}
	return items, nil
}

func (c *Client) fromCache(key []byte) ([]models.ExerciseLookup, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, err := c.cache.Get(key)
	if err != nil {
		c.metrics.CounterLookupCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	var results []models.ExerciseLookup
	if err := json.Unmarshal(data, &results); err != nil {
		c.log.Warn("dropping undecodable exercisedb cache entry", "error", err)
		c.cache.Del(key)
		return nil, false
	}
	c.metrics.CounterLookupCache.WithLabelValues("hit").Inc()
	return results, true
}

func (c *Client) toCache(key []byte, results []models.ExerciseLookup) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := c.cache.Set(key, data, int(c.cacheTTL.Seconds())); err != nil {
		c.log.Warn("caching exercisedb results", "error", err)
	}
}
