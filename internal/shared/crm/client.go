package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// Client: authenticated, rate-limited CRM API client
// Token policy: reads reuse the cached token until a 401; writes re-mint
// the token on every call because the upstream invalidates write tokens
// unpredictably.
// =============================================================================

// Config holds the CRM connection parameters.
type Config struct {
	BaseURL       string
	Username      string
	Password      string
	APIKey        string
	RatePerMinute int
	Timeout       time.Duration
	RetryBase     time.Duration
	MaxRetries    int
}

// Client is the CRM API client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *TokenBucket
	logger     *zap.Logger

	mu    sync.Mutex
	token string
}

// NewClient creates a CRM client. Defaults: 45 req/min, 30s per-call
// timeout, 3 retry attempts with 1s base backoff.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    NewTokenBucket(cfg.RatePerMinute, 256),
		logger:     logger,
	}
}

// Login authenticates against the CRM and caches the token. Transport
// errors and 5xx get the same backoff-retry as reads; every write
// re-mints the token, so one transient blip here must not fail the
// whole writeback.
func (c *Client) Login(ctx context.Context) (string, error) {
	backoff := c.cfg.RetryBase
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		token, err := c.loginOnce(ctx)
		if err == nil {
			return token, nil
		}
		if errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrRateLimitExhausted) || IsPermanent(err) {
			return "", err
		}
		lastErr = err
		c.logger.Warn("crm login failed, retrying",
			zap.Int("attempt", attempt), zap.Error(err))

		if attempt < c.cfg.MaxRetries {
			if backoff > 8*time.Second {
				backoff = 8 * time.Second
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return "", &TransientError{Op: "login", Attempts: c.cfg.MaxRetries, Err: lastErr}
}

func (c *Client) loginOnce(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, _ := json.Marshal(map[string]string{
		"grant_type": "password",
		"username":   c.cfg.Username,
		"password":   c.cfg.Password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/v1/Auth/Login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("crm: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("WebApiKey", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusBadRequest:
		return "", ErrAuthFailed
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("crm: login returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", &PermanentError{Op: "login", StatusCode: resp.StatusCode}
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("crm: decode login response: %w", err)
	}
	if lr.AccessToken == "" {
		return "", ErrAuthFailed
	}

	c.mu.Lock()
	c.token = lr.AccessToken
	c.mu.Unlock()
	return lr.AccessToken, nil
}

// ListActivityIDs returns up to limit recent activity ids. A zero
// since fetches the default recency window.
func (c *Client) ListActivityIDs(ctx context.Context, limit int, since time.Time) ([]int64, error) {
	var ids []int64
	path := fmt.Sprintf("/api/v1/Activities?limit=%d", limit)
	if !since.IsZero() {
		path += "&since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}
	if err := c.doRead(ctx, http.MethodGet, path, nil, &ids, "list_activities"); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetActivity fetches the full activity record.
func (c *Client) GetActivity(ctx context.Context, externalID int64) (*ActivityRecord, error) {
	var rec ActivityRecord
	path := fmt.Sprintf("/api/v1/Activity/%d/GetFull", externalID)
	if err := c.doRead(ctx, http.MethodGet, path, nil, &rec, "get_activity"); err != nil {
		return nil, err
	}
	return &rec, nil
}

// AppendActivityNote appends text to the activity description without
// truncating existing content. The token is re-minted first: the
// upstream treats write tokens as single-use.
func (c *Client) AppendActivityNote(ctx context.Context, externalID int64, text string) error {
	if _, err := c.Login(ctx); err != nil {
		return err
	}

	var rec ActivityRecord
	getPath := fmt.Sprintf("/api/v1/Activity/%d/GetFull", externalID)
	if err := c.doRead(ctx, http.MethodGet, getPath, nil, &rec, "get_activity_for_note"); err != nil {
		return err
	}

	desc := rec.Description
	if desc != "" {
		desc += "\n\n"
	}
	desc += text

	putPath := fmt.Sprintf("/api/v1/Activity/%d", externalID)
	return c.doRead(ctx, http.MethodPut, putPath, &activityUpdate{Description: &desc}, nil, "append_note")
}

// CloseActivity marks the CRM activity completed. Write call: token
// re-minted first.
func (c *Client) CloseActivity(ctx context.Context, externalID int64) error {
	if _, err := c.Login(ctx); err != nil {
		return err
	}
	status := StatusCompleted
	path := fmt.Sprintf("/api/v1/Activity/%d", externalID)
	return c.doRead(ctx, http.MethodPut, path, &activityUpdate{Status: &status}, nil, "close_activity")
}

// doRead executes a request with the cached token. 401 triggers one
// re-login and retry; 5xx and transport errors are retried with
// exponential backoff; remaining 4xx surface as PermanentError.
func (c *Client) doRead(ctx context.Context, method, path string, body, out interface{}, op string) error {
	relogged := false
	backoff := c.cfg.RetryBase
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		status, respBody, err := c.once(ctx, method, path, body)
		if err != nil {
			lastErr = err
			c.logger.Warn("crm request failed, retrying",
				zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		} else {
			switch {
			case status == http.StatusUnauthorized:
				if relogged {
					return ErrAuthFailed
				}
				relogged = true
				if _, err := c.Login(ctx); err != nil {
					return err
				}
				attempt-- // the re-authenticated retry does not consume an attempt
				continue
			case status >= 500:
				lastErr = fmt.Errorf("crm: %s returned status %d", op, status)
				c.logger.Warn("crm server error, retrying",
					zap.String("op", op), zap.Int("status", status), zap.Int("attempt", attempt))
			case status >= 400:
				return &PermanentError{Op: op, StatusCode: status, Body: string(respBody)}
			default:
				if out == nil {
					return nil
				}
				if err := json.Unmarshal(respBody, out); err != nil {
					return fmt.Errorf("crm: decode %s response: %w", op, err)
				}
				return nil
			}
		}

		if attempt < c.cfg.MaxRetries {
			if backoff > 8*time.Second {
				backoff = 8 * time.Second
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return &TransientError{Op: op, Attempts: c.cfg.MaxRetries, Err: lastErr}
}

// once performs a single HTTP exchange and returns status and body.
func (c *Client) once(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("crm: marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("WebApiKey", c.cfg.APIKey)

	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}
