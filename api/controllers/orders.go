package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tupmarket/marketplace-backend/api/responses"
	"github.com/tupmarket/marketplace-backend/api/validators"
	ordersvc "github.com/tupmarket/marketplace-backend/internal/orders"
	"github.com/tupmarket/marketplace-backend/pkg/db/models"
	"github.com/tupmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
)

type orderItemResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	PriceEach decimal.Decimal `json:"price_each"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	ExternalID    string              `json:"external_id,omitempty"`
	Status        string              `json:"status"`
	Total         decimal.Decimal     `json:"total"`
	PlacedAt      time.Time           `json:"placed_at"`
	InvoiceID     string              `json:"invoice_id,omitempty"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	Items         []orderItemResponse `json:"items"`
}

func newOrderResponse(order *models.Order) orderResponse {
	out := orderResponse{
		ID:       order.ID.String(),
		Status:   order.Status.String(),
		Total:    order.Total,
		PlacedAt: order.PlacedAt,
		Items:    make([]orderItemResponse, 0, len(order.Items)),
	}
	if order.ExternalID != nil {
		out.ExternalID = *order.ExternalID
	}
	if order.InvoiceID != nil {
		out.InvoiceID = *order.InvoiceID
	}
	if order.PaymentMethod != nil {
		out.PaymentMethod = *order.PaymentMethod
	}
	for _, item := range order.Items {
		out.Items = append(out.Items, orderItemResponse{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			PriceEach: item.PriceEach,
			LineTotal: item.LineTotal(),
		})
	}
	return out
}

// OrdersList returns the buyer's order history.
func OrdersList(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]orderResponse, 0, len(rows))
		for i := range rows {
			out = append(out, newOrderResponse(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// OrderDetail returns one order scoped to its buyer.
func OrderDetail(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.GetForUser(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// PaymentStatus reports where a checkout attempt stands by its provider
// reference. Buyers poll it after the hosted-invoice redirect.
func PaymentStatus(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		externalID := r.URL.Query().Get("external_id")
		if externalID == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "external_id is required"))
			return
		}

		order, err := svc.PaymentStatus(r.Context(), userID, externalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"external_id": externalID,
			"status":      order.Status.String(),
		})
	}
}

type fulfillmentRequest struct {
	Status string `json:"status" validate:"required,oneof=shipped delivered"`
}

// OrderFulfillment advances a confirmed order through the seller's
// fulfillment chain.
func OrderFulfillment(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		var payload fulfillmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AdvanceFulfillment(r.Context(), userID, orderID, enums.OrderStatus(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
