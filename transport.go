package pushkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/oauth2"
)

// minRateLimitDelay is the floor for delays after HTTP 429. A server-supplied
// Retry-After takes precedence when it is larger.
const minRateLimitDelay = 5 * time.Second

// apiClient executes HTTP calls against the backend with bounded
// retry/backoff and typed success/error decoding. It owns no persistent
// state.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	maxRetries int
	debug      bool

	// sleep waits between attempts; injectable so tests don't wait out
	// real backoff delays.
	sleep func(context.Context, time.Duration) error
}

// newAPIClient builds an apiClient from the configuration. The API key is
// attached to every attempt as a bearer credential via oauth2.Transport.
func newAPIClient(cfg *Config, logger *slog.Logger, base http.RoundTripper) (*apiClient, error) {
	baseURL, err := cfg.BaseURL()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	if base == nil {
		base = http.DefaultTransport
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.APIKey,
		TokenType:   "Bearer",
	})

	return &apiClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout, // Bounds each transport attempt; expiry counts as a transport failure
			Transport: &oauth2.Transport{
				Source: source,
				Base:   base,
			},
		},
		logger:     logger,
		maxRetries: cfg.MaxRetryAttempts,
		debug:      cfg.DebugLogging,
		sleep:      sleepContext,
	}, nil
}

// send performs one logical call: POST payload to path, decode the response
// into out (nil when an empty body is expected), re-issuing the transport
// call per the retry policy.
//
// Transport failures and 5xx retry with exponential backoff (1s, 2s, 4s, …).
// 429 retries after max(Retry-After, 5s). 401, 403, decode failures, and
// unrecognized statuses fail immediately.
func (c *apiClient) send(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	endpoint := c.baseURL + path

	bo := &backoff.ExponentialBackOff{
		InitialInterval:     time.Second,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         5 * time.Minute,
	}
	bo.Reset()

	for attempt := 0; ; attempt++ {
		retryable, serverDelay, err := c.attempt(ctx, endpoint, body, out)
		if err == nil {
			return nil
		}
		if !retryable || attempt >= c.maxRetries {
			return err
		}

		// Server-supplied delay takes precedence over the exponential value.
		wait := bo.NextBackOff()
		if serverDelay > 0 {
			wait = serverDelay
		}

		c.logger.DebugContext(ctx, "retrying request",
			"url", endpoint, "attempt", attempt+1, "wait", wait, "error", err)

		if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
			return &NetworkError{Err: sleepErr}
		}
	}
}

// attempt issues a single transport call and classifies the outcome.
// retryable reports whether the retry policy applies; serverDelay carries a
// 429 Retry-After override, 0 otherwise.
func (c *apiClient) attempt(ctx context.Context, endpoint string, body []byte, out any) (retryable bool, serverDelay time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return false, 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.debug {
		c.logger.DebugContext(ctx, "sending request",
			"method", http.MethodPost, "url", endpoint, "payload", string(body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// No response at all (connectivity loss, timeout)
		return true, 0, &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, 0, &NetworkError{Err: err}
	}

	if c.debug {
		c.logger.DebugContext(ctx, "received response",
			"url", endpoint, "status", resp.StatusCode, "body", string(respBody))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return false, 0, nil
		}
		if len(respBody) == 0 {
			return false, 0, fmt.Errorf("%w: empty body from %s", ErrInvalidResponse, endpoint)
		}
		// A malformed success body is not retried
		if err := json.Unmarshal(respBody, out); err != nil {
			return false, 0, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return false, 0, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return false, 0, ErrInvalidCredentials

	case resp.StatusCode == http.StatusForbidden:
		return false, 0, ErrTokenExpired

	case resp.StatusCode == http.StatusTooManyRequests:
		delay := retryAfterDelay(resp.Header.Get("Retry-After"))
		return true, delay, &ServerError{StatusCode: resp.StatusCode, Message: extractMessage(respBody)}

	case resp.StatusCode >= 500:
		return true, 0, &ServerError{StatusCode: resp.StatusCode, Message: extractMessage(respBody)}

	default:
		return false, 0, &ServerError{StatusCode: resp.StatusCode, Message: extractMessage(respBody)}
	}
}

// retryAfterDelay converts a Retry-After header to a delay, applying the
// rate-limit floor. Non-numeric or absent values fall back to the floor.
func retryAfterDelay(header string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds < 0 {
		return minRateLimitDelay
	}

	delay := time.Duration(seconds) * time.Second
	if delay < minRateLimitDelay {
		return minRateLimitDelay
	}
	return delay
}

// extractMessage pulls a human-readable message out of an error response
// body: a "message" field, then an "error" field, else the raw body text.
func extractMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return strings.TrimSpace(string(body))
}

// sleepContext waits for d without blocking other tasks, returning early if
// ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
