package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ecomarket/marketplace-backend/api/middleware"
	"github.com/ecomarket/marketplace-backend/api/responses"
	"github.com/ecomarket/marketplace-backend/api/validators"
	ordersvc "github.com/ecomarket/marketplace-backend/internal/orders"
	pkgerrors "github.com/ecomarket/marketplace-backend/pkg/errors"
	"github.com/ecomarket/marketplace-backend/pkg/logger"
)

type createOrderRequest struct {
	CartItemIDs     []uuid.UUID `json:"cartItemIds" validate:"required,min=1"`
	ShippingAddress string      `json:"shippingAddress" validate:"required,max=500"`
	PaymentIntentID *string     `json:"paymentIntentId,omitempty" validate:"omitempty,max=255"`
}

type createOrderResponse struct {
	OrderID uuid.UUID `json:"orderId"`
}

// List returns the caller's orders, newest first.
func List(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForBuyer(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one of the caller's orders.
func Detail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetForBuyer(r.Context(), buyerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Create places an order from the selected cart lines.
func Create(placement ordersvc.Placement, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if placement == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order placement unavailable"))
			return
		}
		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := placement.PlaceOrder(r.Context(), buyerID, ordersvc.PlaceOrderInput{
			CartItemIDs:     payload.CartItemIDs,
			ShippingAddress: payload.ShippingAddress,
			PaymentIntentID: payload.PaymentIntentID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, createOrderResponse{OrderID: orderID})
	}
}

func buyerIDFromContext(r *http.Request) (string, error) {
	buyerID := middleware.UserIDFromContext(r.Context())
	if buyerID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return buyerID, nil
}
