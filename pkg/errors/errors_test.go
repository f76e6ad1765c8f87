package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "create invoice")

	assert.Equal(t, CodeDependency, err.Code())
	assert.Equal(t, "create invoice", err.Message())
	assert.True(t, stdErrors.Is(err, cause))
}

func TestWrapNilCause(t *testing.T) {
	t.Parallel()

	err := Wrap(CodeProvider, nil, "quote failed")
	require.NotNil(t, err)
	assert.Nil(t, err.Unwrap())
	assert.Equal(t, CodeProvider, err.Code())
}

func TestAsUnwrapsThroughFmt(t *testing.T) {
	t.Parallel()

	inner := New(CodeEmptyCart, "no cart lines")
	wrapped := fmt.Errorf("settle: %w", inner)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeEmptyCart, typed.Code())

	assert.Nil(t, As(stdErrors.New("plain")))
	assert.Nil(t, As(nil))
}

func TestMetadataFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code   Code
		status int
	}{
		{CodeEmptyCart, http.StatusBadRequest},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeOutOfStock, http.StatusConflict},
		{CodeCheckoutFailed, http.StatusBadGateway},
		{CodeProvider, http.StatusBadGateway},
		{CodeDependency, http.StatusServiceUnavailable},
		{Code("SOMETHING_NEW"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, MetadataFor(tc.code).HTTPStatus, string(tc.code))
	}
}

func TestProviderMetadataHidesDetails(t *testing.T) {
	t.Parallel()

	// Raw provider bodies must never be surfaced to end users.
	assert.False(t, MetadataFor(CodeProvider).DetailsAllowed)
	assert.False(t, MetadataFor(CodeDependency).DetailsAllowed)
	assert.False(t, MetadataFor(CodeCheckoutFailed).DetailsAllowed)
}

func TestIsCode(t *testing.T) {
	t.Parallel()

	err := New(CodeOutOfStock, "stock exhausted")
	assert.True(t, IsCode(err, CodeOutOfStock))
	assert.False(t, IsCode(err, CodeConflict))
	assert.False(t, IsCode(nil, CodeOutOfStock))
}
