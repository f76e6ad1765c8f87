package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tupmarket/marketplace-backend/api/middleware"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
)

// requestUserID extracts the authenticated user id set by the identity
// middleware.
func requestUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user context")
	}
	return userID, nil
}
