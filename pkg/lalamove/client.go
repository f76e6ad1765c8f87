package lalamove

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tupmarket/marketplace-backend/pkg/config"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
)

const responseBodyReadLimit int64 = 4096

var (
	errAPIKeyRequired    = errors.New("lalamove api key is required")
	errAPISecretRequired = errors.New("lalamove api secret is required")
	errMarketRequired    = errors.New("lalamove market is required")
	errBaseURLRequired   = errors.New("lalamove base url is required")
)

// Client sends HMAC-signed requests to the Lalamove REST API. Each call
// signs a fresh wall-clock timestamp; signatures are never reused.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
	market     string
	logg       *logger.Logger
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithClock overrides the timestamp source. Tests use it to pin the
// signed timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the signed-request client from configuration.
func NewClient(cfg config.LalamoveConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	apiSecret := strings.TrimSpace(cfg.APISecret)
	if apiSecret == "" {
		return nil, errAPISecretRequired
	}
	market := strings.TrimSpace(cfg.Market)
	if market == "" {
		return nil, errMarketRequired
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		market:     market,
		logg:       logg,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Sign computes the hex HMAC-SHA256 over the provider's canonical
// string. It is a pure function of its inputs.
func Sign(secret, timestamp, method, path, body string) string {
	raw := fmt.Sprintf("%s\r\n%s\r\n%s\r\n\r\n%s", timestamp, method, path, body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Do sends a signed request and returns the raw JSON response body.
// The timestamp placed in the Authorization header is the exact value
// signed; the provider rejects any mismatch as an auth failure.
func (c *Client) Do(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "lalamove client not configured")
	}

	body := ""
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal lalamove request")
		}
		body = string(encoded)
	}

	timestamp := fmt.Sprintf("%d", c.now().UnixMilli())
	signature := Sign(c.apiSecret, timestamp, method, path, body)

	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build lalamove request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("hmac %s:%s:%s", c.apiKey, timestamp, signature))
	req.Header.Set("Market", c.market)
	req.Header.Set("X-LLM-Country", c.market)

	if c.logg != nil {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"provider": "lalamove",
			"method":   method,
			"path":     path,
		})
		c.logg.Info(logCtx, "courier request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute lalamove request")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read lalamove response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Retrying with the same timestamp+signature can never succeed;
		// callers must issue a fresh Do to regenerate both.
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "lalamove rejected request signature")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, cause, "lalamove request failed")
	}

	return json.RawMessage(respBody), nil
}
