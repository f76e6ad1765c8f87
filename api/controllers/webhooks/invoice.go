package webhooks

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/tupmarket/marketplace-backend/api/responses"
	"github.com/tupmarket/marketplace-backend/api/validators"
	invoicewebhook "github.com/tupmarket/marketplace-backend/internal/webhooks/invoice"
	"github.com/tupmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
)

const callbackTokenHeader = "X-Callback-Token"

// InvoiceWebhookService applies one verified provider notification.
type InvoiceWebhookService interface {
	HandleCallback(ctx context.Context, event invoicewebhook.Event) error
}

type tokenSource interface {
	CallbackToken() string
}

// invoiceCallbackRequest is the provider's notification body. Fields the
// reconciliation does not use are accepted and discarded.
type invoiceCallbackRequest struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id" validate:"required"`
	Status     string `json:"status" validate:"required"`
}

// InvoiceWebhook receives invoice status notifications. The callback
// token is checked before the body is read: an unauthenticated caller
// learns nothing, not even whether the payload parses.
func InvoiceWebhook(svc InvoiceWebhookService, tokens tokenSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if tokens == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "callback token unavailable"))
			return
		}

		provided := r.Header.Get(callbackTokenHeader)
		expected := tokens.CallbackToken()
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeForbidden, "invalid callback token"))
			return
		}

		var payload invoiceCallbackRequest
		if err := validators.DecodeJSONBodyLenient(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		err := svc.HandleCallback(ctx, invoicewebhook.Event{
			ExternalID: payload.ExternalID,
			Status:     enums.InvoiceStatus(payload.Status),
			InvoiceID:  payload.ID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
