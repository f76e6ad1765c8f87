package lalamove

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tupmarket/marketplace-backend/pkg/config"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
)

func testConfig(baseURL string) config.LalamoveConfig {
	return config.LalamoveConfig{
		APIKey:    "pk_test_key",
		APISecret: "sk_test_secret",
		Market:    "PH",
		BaseURL:   baseURL,
	}
}

func TestSignDeterministic(t *testing.T) {
	t.Parallel()

	first := Sign("secret", "1700000000000", "POST", "/v3/quotations", `{"data":{}}`)
	second := Sign("secret", "1700000000000", "POST", "/v3/quotations", `{"data":{}}`)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	// Changing any single input changes the signature.
	assert.NotEqual(t, first, Sign("other", "1700000000000", "POST", "/v3/quotations", `{"data":{}}`))
	assert.NotEqual(t, first, Sign("secret", "1700000000001", "POST", "/v3/quotations", `{"data":{}}`))
	assert.NotEqual(t, first, Sign("secret", "1700000000000", "GET", "/v3/quotations", `{"data":{}}`))
	assert.NotEqual(t, first, Sign("secret", "1700000000000", "POST", "/v3/orders", `{"data":{}}`))
	assert.NotEqual(t, first, Sign("secret", "1700000000000", "POST", "/v3/quotations", ""))
}

func TestDoSignsHeaderWithSameTimestamp(t *testing.T) {
	t.Parallel()

	fixed := time.UnixMilli(1700000000000)
	var gotAuth, gotMarket, gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMarket = r.Header.Get("Market")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), nil, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	_, err = client.Do(context.Background(), http.MethodPost, "/v3/quotations", map[string]any{"data": map[string]any{}})
	require.NoError(t, err)

	expectedSig := Sign("sk_test_secret", "1700000000000", "POST", "/v3/quotations", gotBody)
	assert.Equal(t, "hmac pk_test_key:1700000000000:"+expectedSig, gotAuth)
	assert.Equal(t, "PH", gotMarket)
}

func TestDoAuthFailure(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client, err := NewClient(testConfig(srv.URL), nil)
		require.NoError(t, err)

		_, err = client.Do(context.Background(), http.MethodPost, "/v3/quotations", nil)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
		srv.Close()
	}
}

func TestDoProviderFailureDoesNotLeakSecret(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":[{"id":"ERR_INVALID_FIELD"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = client.Do(context.Background(), http.MethodPost, "/v3/quotations", nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeProvider))
	assert.Contains(t, err.Error(), "lalamove request failed")
	assert.NotContains(t, err.Error(), "sk_test_secret")
}

func TestDoNetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // force connection errors

	client, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = client.Do(context.Background(), http.MethodPost, "/v3/quotations", nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	cfg := testConfig("https://rest.sandbox.lalamove.com")
	cfg.APISecret = ""
	_, err := NewClient(cfg, nil)
	assert.ErrorIs(t, err, errAPISecretRequired)

	cfg = testConfig("")
	_, err = NewClient(cfg, nil)
	assert.ErrorIs(t, err, errBaseURLRequired)
}
