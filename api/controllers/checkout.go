package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tupmarket/marketplace-backend/api/responses"
	"github.com/tupmarket/marketplace-backend/api/validators"
	"github.com/tupmarket/marketplace-backend/internal/settlement"
	"github.com/tupmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
)

// checkoutRequest mirrors the client's checkout form. shipping_cost and
// final_total are advisory; the settlement engine recomputes both from
// storage.
type checkoutRequest struct {
	ShippingMethod string          `json:"shipping_method" validate:"required,oneof=standard pickup courier"`
	AddressID      string          `json:"address_id" validate:"omitempty,uuid"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	FinalTotal     decimal.Decimal `json:"final_total"`
}

type checkoutResponse struct {
	OrderID     string          `json:"order_id"`
	ExternalID  string          `json:"external_id"`
	RedirectURL string          `json:"redirect_url"`
	Total       decimal.Decimal `json:"total"`
}

// Checkout settles the cart and returns the hosted invoice redirect.
func Checkout(svc *settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := settlement.SettleInput{
			ShippingMethod:    enums.ShippingMethod(payload.ShippingMethod),
			ClientDeliveryFee: payload.ShippingCost,
			ClientTotal:       payload.FinalTotal,
		}
		if payload.AddressID != "" {
			addressID, err := uuid.Parse(payload.AddressID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address id"))
				return
			}
			input.AddressID = &addressID
		}

		result, err := svc.Settle(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkoutResponse{
			OrderID:     result.OrderID.String(),
			ExternalID:  result.ExternalID,
			RedirectURL: result.RedirectURL,
			Total:       result.Total,
		})
	}
}
