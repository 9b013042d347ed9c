// Package oddsapi is the REST client for The Odds API (v4), the upstream
// source of bookmaker prices.
package oddsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

const (
	headerRemaining = "X-Requests-Remaining"
	headerUsed      = "X-Requests-Used"
	headerLast      = "X-Requests-Last"
)

// Config configures the provider client.
type Config struct {
	BaseURL           string
	APIKey            string
	Regions           string
	Markets           []string
	OddsFormat        string
	Timeout           time.Duration
	RequestsPerSecond float64
	BreakerFailures   uint32
	BreakerCooldown   time.Duration
}

// Client fetches events and odds. Calls are paced by a rate limiter and
// guarded by a circuit breaker; the most recent quota headers are kept.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger

	mu    sync.RWMutex
	quota domain.Quota
}

var _ domain.EventSource = (*Client)(nil)

// NewClient creates a provider client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.OddsFormat == "" {
		cfg.OddsFormat = "decimal"
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.With(slog.String("component", "oddsapi")),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "oddsapi",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// Only transport errors, 429 and 5xx count towards tripping.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrNotFound) ||
				errors.Is(err, domain.ErrUnauthorized) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return c
}

// Name identifies the source in logs and audit entries.
func (c *Client) Name() string { return "oddsapi" }

// FetchEvents implements domain.EventSource.
func (c *Client) FetchEvents(ctx context.Context, sportKey string) ([]domain.Event, error) {
	events, _, err := c.GetOdds(ctx, sportKey)
	return events, err
}

// GetOdds returns upcoming and live events for a sport with every configured
// market, plus the request quota reported by the provider.
func (c *Client) GetOdds(ctx context.Context, sportKey string) ([]domain.Event, domain.Quota, error) {
	params := c.authParams()
	params.Set("regions", c.cfg.Regions)
	if len(c.cfg.Markets) > 0 {
		params.Set("markets", strings.Join(c.cfg.Markets, ","))
	}
	params.Set("oddsFormat", c.cfg.OddsFormat)
	params.Set("dateFormat", "iso")

	path := fmt.Sprintf("/v4/sports/%s/odds?%s", url.PathEscape(sportKey), params.Encode())
	body, quota, err := c.doGet(ctx, path)
	if err != nil {
		return nil, quota, fmt.Errorf("oddsapi: get odds %s: %w", sportKey, err)
	}

	var events []domain.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, quota, fmt.Errorf("oddsapi: decode odds %s: %w", sportKey, err)
	}

	c.logger.Info("odds fetched",
		slog.String("sport", sportKey),
		slog.Int("events", len(events)),
		slog.Int("requests_remaining", quota.Remaining),
	)
	return events, quota, nil
}

// ListSports returns the sports offered by the provider. When all is false
// only in-season sports are returned.
func (c *Client) ListSports(ctx context.Context, all bool) ([]domain.Sport, error) {
	params := c.authParams()
	if all {
		params.Set("all", "true")
	}
	body, _, err := c.doGet(ctx, "/v4/sports?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("oddsapi: list sports: %w", err)
	}

	var sports []domain.Sport
	if err := json.Unmarshal(body, &sports); err != nil {
		return nil, fmt.Errorf("oddsapi: decode sports: %w", err)
	}
	return sports, nil
}

// Quota returns the quota reported by the most recent response.
func (c *Client) Quota() domain.Quota {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.quota
}

func (c *Client) authParams() url.Values {
	params := url.Values{}
	params.Set("apiKey", c.cfg.APIKey)
	return params
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, domain.Quota, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.Quota{}, fmt.Errorf("rate limiter: %w", err)
	}

	var quota domain.Quota
	out, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		quota = quotaFromHeaders(resp.Header)
		if !quota.UpdatedAt.IsZero() {
			c.mu.Lock()
			c.quota = quota
			c.mu.Unlock()
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
			return nil, err
		}
		return body, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, quota, fmt.Errorf("%w: %w", domain.ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, quota, err
	}
	return out.([]byte), quota, nil
}

// quotaFromHeaders parses the usage headers. UpdatedAt stays zero when the
// response carried none.
func quotaFromHeaders(h http.Header) domain.Quota {
	var q domain.Quota
	remaining := h.Get(headerRemaining)
	if remaining == "" {
		return q
	}
	q.Remaining = atoi(remaining)
	q.Used = atoi(h.Get(headerUsed))
	q.Last = atoi(h.Get(headerLast))
	q.UpdatedAt = time.Now().UTC()
	return q
}

// atoi accepts integer or float header values ("498", "2.0").
func atoi(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// checkHTTPStatus maps non-2xx responses to domain sentinel errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
