package neynar

// Transport layer for the Neynar Farcaster API
// Knows nothing about leaderboards: sends GET requests and returns raw bodies

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gm-streak/internal/infra/log"
	"gm-streak/internal/infra/retry"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.neynar.com/v2/farcaster"

// ErrMissingAPIKey is returned by every lookup when no api key is configured.
var ErrMissingAPIKey = errors.New("neynar api key is not configured")

// Config holds the client settings; zero values fall back to defaults.
type Config struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	// MaxRetries is 0 by default so one lookup is one request.
	MaxRetries int
}

type Client struct {
	baseURL         string
	apiKey          string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	retryOpts       retry.Options
	maxResponseSize int64
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// Neynar free tier allows a handful of requests per second
	rateLimiter := rate.NewLimiter(rate.Limit(5), 10)

	circuitBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "NeynarAPI",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Client{
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		rateLimiter:    rateLimiter,
		circuitBreaker: circuitBreaker,
		retryOpts: retry.Options{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  300 * time.Millisecond,
			MaxDelay:   5 * time.Second,
			Backoff:    2.0,
		},
		maxResponseSize: 5 * 1024 * 1024,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// HasAPIKey reports whether lookups can be issued at all.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// get performs one logical GET: rate limited, retried on 429/5xx, guarded by the breaker.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	}

	requestID := log.GenerateRequestID()
	startTime := time.Now()

	var respBody []byte
	err := retry.Do(ctx, c.retryOpts, func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
		_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			body, err := c.doGET(ctx, requestID, endpoint, startTime)
			if err != nil {
				return nil, err
			}
			respBody = body
			return nil, nil
		})
		return err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.LogWarn("Neynar circuit breaker rejected request", zap.String("request_id", requestID), zap.String("endpoint", endpoint))
		}
		return nil, err
	}
	return respBody, nil
}

func (c *Client) doGET(ctx context.Context, requestID, endpoint string, startTime time.Time) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api_key", c.apiKey)

	log.LogRequest(requestID, http.MethodGet, endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.LogResponse(requestID, 0, time.Since(startTime).Milliseconds(), zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	duration := time.Since(startTime).Milliseconds()
	if err != nil {
		log.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	log.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", endpoint))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       body,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return body, nil
}
