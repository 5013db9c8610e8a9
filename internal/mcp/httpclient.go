package mcp

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

	"github.com/claude/fitlog/internal/analytics"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/reports"
	"github.com/claude/fitlog/internal/storage"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource by calling the fitlog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// getJSON fetches path and decodes the JSON body into v. A 404 is reported
// as storage.ErrNotFound.
func (c *HTTPClient) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func dateParams(from, to *models.Date) url.Values {
	v := url.Values{}
	if from != nil {
		v.Set("from", from.String())
	}
	if to != nil {
		v.Set("to", to.String())
	}
	return v
}

func (c *HTTPClient) Overview(ctx context.Context, _ int, types []string, from, to *models.Date) (*analytics.Overview, error) {
	params := dateParams(from, to)
	if len(types) > 0 {
		params.Set("types", strings.Join(types, ","))
	}

	var ov analytics.Overview
	if err := c.getJSON(ctx, "/api/v1/analytics", params, &ov); err != nil {
		return nil, err
	}
	return &ov, nil
}

func (c *HTTPClient) Records(ctx context.Context, _ int, opts reports.RecordsOptions) (*analytics.Records, error) {
	params := url.Values{}
	if opts.Discipline != "" {
		params.Set("discipline", strings.ToLower(string(opts.Discipline)))
	}
	params.Set("include_endurance", strconv.FormatBool(opts.Endurance))
	params.Set("include_strength", strconv.FormatBool(opts.Strength))

	var rec analytics.Records
	if err := c.getJSON(ctx, "/api/v1/records", params, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *HTTPClient) StrengthExercises(ctx context.Context, _ int) ([]analytics.ExerciseSummary, error) {
	var summary []analytics.ExerciseSummary
	if err := c.getJSON(ctx, "/api/v1/strength-exercises", nil, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// ExerciseSeries resolves the key to the exercise's representative workout
// exercise through the strength summary, then fetches its stats.
func (c *HTTPClient) ExerciseSeries(ctx context.Context, userID int, identityKey string) (*analytics.ExerciseSeries, error) {
	id, err := analytics.ParseIdentity(identityKey)
	if err != nil {
		return nil, err
	}
	summary, err := c.StrengthExercises(ctx, userID)
	if err != nil {
		return nil, err
	}

	var anchor uuid.UUID
	for _, s := range summary {
		if s.IdentityKey == id.Key() {
			anchor = s.RepresentativeID
			break
		}
	}
	if anchor == uuid.Nil {
		return nil, fmt.Errorf("exercise %s: %w", identityKey, storage.ErrNotFound)
	}

	var series analytics.ExerciseSeries
	if err := c.getJSON(ctx, "/api/v1/workout-exercises/"+anchor.String()+"/stats", nil, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

func (c *HTTPClient) ListWorkouts(ctx context.Context, _ int, f storage.WorkoutFilter) (*storage.WorkoutPage, error) {
	params := url.Values{}
	if f.From != nil {
		params.Set("date_from", f.From.String())
	}
	if f.To != nil {
		params.Set("date_to", f.To.String())
	}
	if f.Type != nil {
		params.Set("type", strings.ToLower(string(*f.Type)))
	}
	if f.MinDistance != nil {
		params.Set("min_distance", strconv.FormatFloat(*f.MinDistance, 'f', -1, 64))
	}
	if f.MaxDistance != nil {
		params.Set("max_distance", strconv.FormatFloat(*f.MaxDistance, 'f', -1, 64))
	}
	if f.MinCalories != nil {
		params.Set("min_calories", strconv.Itoa(*f.MinCalories))
	}
	if f.MaxCalories != nil {
		params.Set("max_calories", strconv.Itoa(*f.MaxCalories))
	}
	if f.Page > 0 {
		params.Set("page", strconv.Itoa(f.Page))
	}

	var page storage.WorkoutPage
	if err := c.getJSON(ctx, "/api/v1/workouts", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HTTPClient) Dashboard(ctx context.Context, _ int) (*analytics.Dashboard, error) {
	var d analytics.Dashboard
	if err := c.getJSON(ctx, "/api/v1/dashboard", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) SearchExercises(ctx context.Context, query string, limit int) ([]models.ExerciseLookup, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))

	var results []models.ExerciseLookup
	if err := c.getJSON(ctx, "/api/v1/exercises/search", params, &results); err != nil {
		return nil, err
	}
	return results, nil
}
