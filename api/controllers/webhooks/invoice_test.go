package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invoicewebhook "github.com/tupmarket/marketplace-backend/internal/webhooks/invoice"
	"github.com/tupmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
)

type fakeWebhookService struct {
	err      error
	gotEvent invoicewebhook.Event
	calls    int
}

func (f *fakeWebhookService) HandleCallback(_ context.Context, event invoicewebhook.Event) error {
	f.calls++
	f.gotEvent = event
	return f.err
}

type staticTokenSource string

func (s staticTokenSource) CallbackToken() string { return string(s) }

func postWebhook(t *testing.T, handler http.HandlerFunc, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payment/webhook/", strings.NewReader(body))
	if token != "" {
		req.Header.Set("X-Callback-Token", token)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestInvoiceWebhookAppliesEvent(t *testing.T) {
	svc := &fakeWebhookService{}
	handler := InvoiceWebhook(svc, staticTokenSource("cb_token"), nil)

	body := `{"id":"inv_123","external_id":"ORDER-1-1700000000000","status":"PAID","amount":260,"paid_at":"2026-03-10T09:00:00Z"}`
	rec := postWebhook(t, handler, "cb_token", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "ORDER-1-1700000000000", svc.gotEvent.ExternalID)
	assert.Equal(t, enums.InvoiceStatusPaid, svc.gotEvent.Status)
	assert.Equal(t, "inv_123", svc.gotEvent.InvoiceID)
}

func TestInvoiceWebhookBadTokenIsForbidden(t *testing.T) {
	svc := &fakeWebhookService{}
	handler := InvoiceWebhook(svc, staticTokenSource("cb_token"), nil)

	rec := postWebhook(t, handler, "wrong", `{"external_id":"ORDER-1","status":"PAID"}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	// Rejected before the body was parsed or the service consulted.
	assert.Zero(t, svc.calls)
}

func TestInvoiceWebhookMissingTokenIsForbidden(t *testing.T) {
	svc := &fakeWebhookService{}
	handler := InvoiceWebhook(svc, staticTokenSource("cb_token"), nil)

	rec := postWebhook(t, handler, "", `{"external_id":"ORDER-1","status":"PAID"}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestInvoiceWebhookInvalidBody(t *testing.T) {
	svc := &fakeWebhookService{}
	handler := InvoiceWebhook(svc, staticTokenSource("cb_token"), nil)

	rec := postWebhook(t, handler, "cb_token", `{"status":"PAID"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestInvoiceWebhookUnknownOrderIs404(t *testing.T) {
	svc := &fakeWebhookService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	handler := InvoiceWebhook(svc, staticTokenSource("cb_token"), nil)

	rec := postWebhook(t, handler, "cb_token", `{"external_id":"ORDER-unknown","status":"PAID"}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvoiceWebhookProcessingFailureIsRetryable(t *testing.T) {
	svc := &fakeWebhookService{err: pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock")}
	handler := InvoiceWebhook(svc, staticTokenSource("cb_token"), nil)

	rec := postWebhook(t, handler, "cb_token", `{"external_id":"ORDER-1","status":"PAID"}`)

	// Non-2xx keeps the provider retrying the delivery.
	assert.GreaterOrEqual(t, rec.Code, 400)
}
