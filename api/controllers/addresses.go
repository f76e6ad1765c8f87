package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tupmarket/marketplace-backend/api/responses"
	"github.com/tupmarket/marketplace-backend/api/validators"
	addresssvc "github.com/tupmarket/marketplace-backend/internal/addresses"
	"github.com/tupmarket/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
)

type addressResponse struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Address     string `json:"address"`
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	Country     string `json:"country"`
	PhoneNumber string `json:"phone_number"`
}

func newAddressResponse(address *models.ShippingAddress) addressResponse {
	return addressResponse{
		ID:          address.ID.String(),
		FullName:    address.FullName,
		Address:     address.Address,
		City:        address.City,
		Province:    address.Province,
		PostalCode:  address.PostalCode,
		Country:     address.Country,
		PhoneNumber: address.PhoneNumber,
	}
}

// AddressList returns the buyer's address book.
func AddressList(svc *addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]addressResponse, 0, len(rows))
		for i := range rows {
			out = append(out, newAddressResponse(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

type saveAddressRequest struct {
	FullName    string `json:"full_name" validate:"required,min=2"`
	Address     string `json:"address" validate:"required,min=5"`
	City        string `json:"city"`
	Province    string `json:"province"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	PhoneNumber string `json:"phone_number" validate:"required,min=7"`
}

// AddressCreate saves a delivery destination.
func AddressCreate(svc *addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload saveAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		address, err := svc.Save(r.Context(), userID, addresssvc.SaveParams{
			FullName:    payload.FullName,
			Address:     payload.Address,
			City:        payload.City,
			Province:    payload.Province,
			PostalCode:  payload.PostalCode,
			Country:     payload.Country,
			PhoneNumber: payload.PhoneNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newAddressResponse(address))
	}
}

// AddressDelete removes a saved address.
func AddressDelete(svc *addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addressID, err := uuid.Parse(chi.URLParam(r, "addressId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address id"))
			return
		}

		if err := svc.Delete(r.Context(), userID, addressID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
