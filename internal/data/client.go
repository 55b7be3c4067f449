package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"equity-backtest/internal/model"

	"go.uber.org/zap"
)

// Client fetches bars and the trading calendar from a market-data HTTP
// API. It implements Provider and Calendar.
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client

	log *zap.SugaredLogger
}

// NewClient creates a market-data API client.
func NewClient(apiKey, baseURL string, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// APIError represents an error response from the market-data API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string // for rate limit errors
}

func (e *APIError) Error() string {
	return e.Message
}

type barsResponse struct {
	StatusCode int            `json:"status_code"`
	Data       model.BarSeries `json:"data"`
}

type batchBarsResponse struct {
	StatusCode int                        `json:"status_code"`
	Data       map[string]model.BarSeries `json:"data"`
}

type calendarResponse struct {
	StatusCode int      `json:"status_code"`
	Data       []string `json:"data"`
}

// History fetches up to count bars for one symbol ending at asOf.
func (c *Client) History(ctx context.Context, symbol, period string, asOf time.Time, count int) (model.BarSeries, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	q := url.Values{}
	q.Set("period", period)
	q.Set("as_of", asOf.Format(model.DateFormat))
	q.Set("count", strconv.Itoa(count))

	var resp barsResponse
	if err := c.get(ctx, "/v1/bars/"+url.PathEscape(symbol), q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// BatchHistory fetches several symbols in one request. Symbols the
// upstream could not serve are absent from the returned map.
func (c *Client) BatchHistory(ctx context.Context, symbols []string, period string, asOf time.Time, count int) (map[string]model.BarSeries, error) {
	if len(symbols) == 0 {
		return map[string]model.BarSeries{}, nil
	}
	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))
	q.Set("period", period)
	q.Set("as_of", asOf.Format(model.DateFormat))
	q.Set("count", strconv.Itoa(count))

	var resp batchBarsResponse
	if err := c.get(ctx, "/v1/bars", q, &resp); err != nil {
		return nil, err
	}
	for _, symbol := range symbols {
		if _, ok := resp.Data[symbol]; !ok {
			c.log.Warnw("symbol missing from batch response", "symbol", symbol)
		}
	}
	return resp.Data, nil
}

// TradingDates fetches the trading calendar for [start, end], returned
// deduplicated and ascending.
func (c *Client) TradingDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	q := url.Values{}
	q.Set("start", start.Format(model.DateFormat))
	q.Set("end", end.Format(model.DateFormat))

	var resp calendarResponse
	if err := c.get(ctx, "/v1/calendar", q, &resp); err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	dates := make([]time.Time, 0, len(resp.Data))
	for _, s := range resp.Data {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		d, err := time.Parse(model.DateFormat, s)
		if err != nil {
			return nil, fmt.Errorf("invalid calendar date %q: %w", s, err)
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.validateAPIKey(); err != nil {
		return err
	}

	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.log.Warnw("request failed", "path", u.Path, "duration", duration, "error", err)
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debugw("response", "path", u.Path, "status", resp.StatusCode, "duration", duration)

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusUnauthorized:
		return &APIError{StatusCode: resp.StatusCode, Code: "UNAUTHORIZED", Message: "unauthorized: invalid API key"}
	case http.StatusForbidden:
		return &APIError{StatusCode: resp.StatusCode, Code: "INVALID_API_KEY", Message: "invalid API key or insufficient permissions"}
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("rate limit exceeded, retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	default:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) validateAPIKey() error {
	if c.APIKey == "" {
		return &APIError{Code: "MISSING_API_KEY", Message: "API key is required"}
	}
	// Reject obviously bad keys; format is otherwise not validated here.
	if len(strings.TrimSpace(c.APIKey)) < 10 {
		return &APIError{Code: "INVALID_API_KEY_FORMAT", Message: "API key appears to be invalid (too short)"}
	}
	return nil
}
