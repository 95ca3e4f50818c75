package controllers

import (
	"net/http"

	"github.com/ecomarket/marketplace-backend/api/responses"
	"github.com/ecomarket/marketplace-backend/internal/impact"
	pkgerrors "github.com/ecomarket/marketplace-backend/pkg/errors"
	"github.com/ecomarket/marketplace-backend/pkg/logger"
)

func ImpactSummary(svc impact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "impact service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Summary(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
