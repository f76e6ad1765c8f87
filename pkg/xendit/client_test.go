package xendit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tupmarket/marketplace-backend/pkg/config"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "xendit-test", Level: zerolog.Disabled, Output: io.Discard})
}

func testConfig(baseURL string) config.XenditConfig {
	return config.XenditConfig{
		APISecret:     "xnd_test_secret",
		CallbackToken: "cb_token",
		BaseURL:       baseURL,
	}
}

func invoiceParams() CreateInvoiceParams {
	return CreateInvoiceParams{
		ExternalID:         "ORDER-5-1700000000000",
		Amount:             decimal.RequireFromString("260.00"),
		Currency:           "PHP",
		Description:        "TUP Market order",
		PayerEmail:         "buyer@tup.edu.ph",
		GivenNames:         "Ana",
		Surname:            "Reyes",
		SuccessRedirectURL: "https://market.example.edu/payment/success",
		FailureRedirectURL: "https://market.example.edu/payment/failed",
		CallbackURL:        "https://market.example.edu/payment/webhook/",
	}
}

func TestCreateInvoiceSendsBasicAuthAndBody(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/invoices", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"inv_123","invoice_url":"https://checkout.xendit.co/web/inv_123"}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), testLogger())
	require.NoError(t, err)

	invoice, err := client.CreateInvoice(context.Background(), invoiceParams())
	require.NoError(t, err)

	assert.Equal(t, "inv_123", invoice.ID)
	assert.Equal(t, "https://checkout.xendit.co/web/inv_123", invoice.InvoiceURL)

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("xnd_test_secret:"))
	assert.Equal(t, wantAuth, gotAuth)

	assert.Equal(t, "ORDER-5-1700000000000", gotBody["external_id"])
	assert.Equal(t, "260", gotBody["amount"])
	assert.Equal(t, "PHP", gotBody["currency"])
	assert.Equal(t, "buyer@tup.edu.ph", gotBody["payer_email"])
	customer, ok := gotBody["customer"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ana", customer["given_names"])
	assert.Equal(t, "Reyes", customer["surname"])
	assert.Equal(t, "buyer@tup.edu.ph", customer["email"])
	assert.Equal(t, "https://market.example.edu/payment/webhook/", gotBody["callback_url"])
}

func TestCreateInvoiceProviderErrorIsDependency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":"INVALID_API_KEY"}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), testLogger())
	require.NoError(t, err)

	_, err = client.CreateInvoice(context.Background(), invoiceParams())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.NotContains(t, err.Error(), "xnd_test_secret")
}

func TestCreateInvoiceNetworkErrorIsDependency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, err := NewClient(testConfig(srv.URL), testLogger())
	require.NoError(t, err)

	_, err = client.CreateInvoice(context.Background(), invoiceParams())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestCreateInvoiceMissingURLIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"inv_123"}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), testLogger())
	require.NoError(t, err)

	_, err = client.CreateInvoice(context.Background(), invoiceParams())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeProvider))
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(config.XenditConfig{CallbackToken: "cb"}, testLogger())
	assert.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(config.XenditConfig{APISecret: "sk"}, testLogger())
	assert.ErrorIs(t, err, errCallbackTokenRequired)
}
