package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// actorAction is an order endpoint body. It runs only for an authenticated caller and
// returns the status and payload to write.
type actorAction func(r *http.Request, actor middleware.Actor) (int, any, error)

func authenticated(svc internalorders.Service, logg *logger.Logger, run actorAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		status, payload, err := run(r, actor)
		switch {
		case err != nil:
			responses.WriteError(ctx, logg, w, err)
		case status == http.StatusNoContent:
			responses.WriteNoContent(w)
		default:
			responses.WriteSuccessStatus(w, status, payload)
		}
	}
}

// Create places an order from the request items, or from the caller's cart when items are omitted.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return authenticated(svc, logg, func(r *http.Request, actor middleware.Actor) (int, any, error) {
		var body internalorders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return 0, nil, err
		}
		order, err := svc.Create(r.Context(), actor.UserID, body)
		return http.StatusCreated, order, err
	})
}

// List pages orders. Customers are pinned to their own orders; admins may filter by user_id.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return authenticated(svc, logg, func(r *http.Request, actor middleware.Actor) (int, any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return 0, nil, err
		}
		query := r.URL.Query()
		input := internalorders.ListOrdersInput{Status: query.Get("status"), Limit: limit, Cursor: query.Get("cursor")}
		owner, err := listOwner(actor, strings.TrimSpace(query.Get("user_id")))
		if err != nil {
			return 0, nil, err
		}
		input.UserID = owner
		list, err := svc.List(r.Context(), input)
		return http.StatusOK, list, err
	})
}

// listOwner picks whose orders a list covers: always the caller for customers, the
// requested user (or everyone) for admins.
func listOwner(actor middleware.Actor, requested string) (*uuid.UUID, error) {
	if !actor.IsAdmin() {
		return &actor.UserID, nil
	}
	if requested == "" {
		return nil, nil
	}
	id, err := uuid.Parse(requested)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid user_id")
	}
	return &id, nil
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return authenticated(svc, logg, func(r *http.Request, actor middleware.Actor) (int, any, error) {
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			return 0, nil, err
		}
		order, err := svc.Get(r.Context(), internalorders.Viewer{UserID: actor.UserID, Admin: actor.IsAdmin()}, orderID)
		return http.StatusOK, order, err
	})
}

// UpdateStatus applies an admin status change; accepting an order also returns the new shipment id.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return authenticated(svc, logg, func(r *http.Request, actor middleware.Actor) (int, any, error) {
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			return 0, nil, err
		}
		var body internalorders.StatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return 0, nil, err
		}
		result, err := svc.UpdateStatus(r.Context(), internalorders.UpdateStatusInput{
			OrderID:     orderID,
			Status:      body.Status,
			ActorUserID: actor.UserID,
			ActorRole:   actor.Role,
		})
		return http.StatusOK, result, err
	})
}

func UpdatePayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return authenticated(svc, logg, func(r *http.Request, actor middleware.Actor) (int, any, error) {
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			return 0, nil, err
		}
		var body internalorders.PaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return 0, nil, err
		}
		order, err := svc.UpdatePayment(r.Context(), internalorders.UpdatePaymentInput{
			OrderID:       orderID,
			PaymentStatus: body.PaymentStatus,
			ActorUserID:   actor.UserID,
			ActorRole:     actor.Role,
		})
		return http.StatusOK, order, err
	})
}

// Delete removes an order and puts unreleased stock back.
func Delete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return authenticated(svc, logg, func(r *http.Request, actor middleware.Actor) (int, any, error) {
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, svc.Delete(r.Context(), orderID, actor.UserID, actor.Role)
	})
}
