package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tupmarket/marketplace-backend/api/responses"
	"github.com/tupmarket/marketplace-backend/api/validators"
	cartsvc "github.com/tupmarket/marketplace-backend/internal/cart"
	"github.com/tupmarket/marketplace-backend/pkg/db/models"
	"github.com/tupmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
)

type cartItemResponse struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name,omitempty"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	LineTotal      decimal.Decimal `json:"line_total"`
	ShippingMethod string          `json:"shipping_method"`
}

type cartResponse struct {
	Items    []cartItemResponse `json:"items"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

func newCartResponse(items []models.CartItem) cartResponse {
	out := cartResponse{Items: make([]cartItemResponse, 0, len(items)), Subtotal: decimal.Zero}
	for _, item := range items {
		entry := cartItemResponse{
			ID:             item.ID.String(),
			ProductID:      item.ProductID.String(),
			Quantity:       item.Quantity,
			ShippingMethod: item.ShippingMethod.String(),
		}
		if item.Product != nil {
			entry.ProductName = item.Product.Name
			entry.UnitPrice = item.Product.Price
			entry.LineTotal = item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			out.Subtotal = out.Subtotal.Add(entry.LineTotal)
		}
		out.Items = append(out.Items, entry)
	}
	return out
}

// CartFetch returns the buyer's staged cart.
func CartFetch(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(items))
	}
}

type addCartItemRequest struct {
	ProductID      string `json:"product_id" validate:"required,uuid"`
	Quantity       int    `json:"quantity" validate:"required,min=1"`
	ShippingMethod string `json:"shipping_method" validate:"omitempty,oneof=standard pickup courier"`
}

// CartAdd stages a product in the buyer's cart.
func CartAdd(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		item, err := svc.Add(r.Context(), userID, cartsvc.AddParams{
			ProductID:      productID,
			Quantity:       payload.Quantity,
			ShippingMethod: enums.ShippingMethod(payload.ShippingMethod),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse([]models.CartItem{*item}).Items[0])
	}
}

type updateCartItemRequest struct {
	Quantity       int    `json:"quantity" validate:"omitempty,min=1"`
	ShippingMethod string `json:"shipping_method" validate:"omitempty,oneof=standard pickup courier"`
}

// CartUpdate edits one staged line.
func CartUpdate(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart item id"))
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), userID, itemID, cartsvc.UpdateParams{
			Quantity:       payload.Quantity,
			ShippingMethod: enums.ShippingMethod(payload.ShippingMethod),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse([]models.CartItem{*item}).Items[0])
	}
}

// CartRemove deletes one staged line.
func CartRemove(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart item id"))
			return
		}

		if err := svc.Remove(r.Context(), userID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}
