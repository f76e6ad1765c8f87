package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tupmarket/marketplace-backend/api/responses"
	"github.com/tupmarket/marketplace-backend/api/validators"
	addresssvc "github.com/tupmarket/marketplace-backend/internal/addresses"
	"github.com/tupmarket/marketplace-backend/internal/delivery"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
)

type shippingQuoteRequest struct {
	AddressID string `json:"address_id" validate:"omitempty,uuid"`
	Address   string `json:"address" validate:"omitempty,min=5"`
}

type shippingQuoteResponse struct {
	Fee         decimal.Decimal `json:"fee"`
	Currency    string          `json:"currency"`
	QuotationID string          `json:"quotation_id"`
}

// ShippingQuote prices courier delivery for the buyer's address. The
// fee returned here is advisory for display; checkout re-quotes.
func ShippingQuote(gateway *delivery.Gateway, addresses *addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload shippingQuoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dropoff := payload.Address
		if payload.AddressID != "" {
			addressID, err := uuid.Parse(payload.AddressID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address id"))
				return
			}
			saved, err := addresses.Get(r.Context(), userID, addressID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			dropoff = saved.Address + ", " + saved.City
		}
		if dropoff == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "address or address_id is required"))
			return
		}

		quote, err := gateway.GetQuote(r.Context(), dropoff)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shippingQuoteResponse{
			Fee:         quote.Fee,
			Currency:    quote.Currency,
			QuotationID: quote.QuotationID,
		})
	}
}
