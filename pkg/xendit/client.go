package xendit

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tupmarket/marketplace-backend/pkg/config"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
)

const (
	invoicesPath                = "/v2/invoices"
	responseBodyReadLimit int64 = 4096
)

// PaymentMethodName is recorded on orders confirmed through this
// provider.
const PaymentMethodName = "xendit"

var (
	errSecretRequired        = errors.New("xendit api secret is required")
	errCallbackTokenRequired = errors.New("xendit callback token is required")
)

// Client creates hosted invoices against the Xendit API.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiSecret     string
	callbackToken string
	logg          *logger.Logger
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

// NewClient builds the invoice client and validates its credentials.
func NewClient(cfg config.XenditConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	apiSecret := strings.TrimSpace(cfg.APISecret)
	if apiSecret == "" {
		return nil, errSecretRequired
	}
	callbackToken := strings.TrimSpace(cfg.CallbackToken)
	if callbackToken == "" {
		return nil, errCallbackTokenRequired
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiSecret:     apiSecret,
		callbackToken: callbackToken,
		logg:          logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.baseURL == "" {
		client.baseURL = "https://api.xendit.co"
	}
	return client, nil
}

// CallbackToken returns the shared secret expected in webhook requests.
func (c *Client) CallbackToken() string {
	if c == nil {
		return ""
	}
	return c.callbackToken
}

// CreateInvoiceParams describes one hosted invoice.
type CreateInvoiceParams struct {
	ExternalID         string
	Amount             decimal.Decimal
	Currency           string
	Description        string
	PayerEmail         string
	GivenNames         string
	Surname            string
	SuccessRedirectURL string
	FailureRedirectURL string
	CallbackURL        string
}

// Invoice is the subset of the provider's response the caller needs.
type Invoice struct {
	ID         string
	InvoiceURL string
}

type invoiceCustomer struct {
	GivenNames string `json:"given_names"`
	Surname    string `json:"surname"`
	Email      string `json:"email"`
}

type createInvoiceRequest struct {
	ExternalID         string          `json:"external_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Description        string          `json:"description"`
	PayerEmail         string          `json:"payer_email"`
	Customer           invoiceCustomer `json:"customer"`
	SuccessRedirectURL string          `json:"success_redirect_url"`
	FailureRedirectURL string          `json:"failure_redirect_url"`
	CallbackURL        string          `json:"callback_url"`
}

type createInvoiceResponse struct {
	ID         string `json:"id"`
	InvoiceURL string `json:"invoice_url"`
}

// CreateInvoice creates a hosted invoice and returns its payment URL.
// The amount must be the server-settled total; callers never pass a
// client-submitted figure here.
func (c *Client) CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*Invoice, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "xendit client not configured")
	}
	if strings.TrimSpace(params.ExternalID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice external id is required")
	}
	if !params.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice amount must be positive")
	}

	payload, err := json.Marshal(createInvoiceRequest{
		ExternalID:  params.ExternalID,
		Amount:      params.Amount,
		Currency:    params.Currency,
		Description: params.Description,
		PayerEmail:  params.PayerEmail,
		Customer: invoiceCustomer{
			GivenNames: params.GivenNames,
			Surname:    params.Surname,
			Email:      params.PayerEmail,
		},
		SuccessRedirectURL: params.SuccessRedirectURL,
		FailureRedirectURL: params.FailureRedirectURL,
		CallbackURL:        params.CallbackURL,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal invoice request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+invoicesPath, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build invoice request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", basicAuthHeader(c.apiSecret))

	if c.logg != nil {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"provider":  "xendit",
			"order_ref": params.ExternalID,
		})
		c.logg.Info(logCtx, "creating hosted invoice")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute invoice request")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read invoice response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "create invoice failed")
	}

	var decoded createInvoiceResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "decode invoice response")
	}
	if decoded.ID == "" || decoded.InvoiceURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "invoice response missing id or invoice_url")
	}

	return &Invoice{ID: decoded.ID, InvoiceURL: decoded.InvoiceURL}, nil
}

func basicAuthHeader(secret string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(secret + ":"))
	return "Basic " + encoded
}
