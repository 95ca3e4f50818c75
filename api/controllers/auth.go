package controllers

import (
	"net/http"

	"github.com/ecomarket/marketplace-backend/api/responses"
	"github.com/ecomarket/marketplace-backend/internal/users"
	pkgerrors "github.com/ecomarket/marketplace-backend/pkg/errors"
	"github.com/ecomarket/marketplace-backend/pkg/logger"
)

// AuthUser returns the caller's profile as mirrored from the identity provider.
func AuthUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
