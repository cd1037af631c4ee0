package cart

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// cartOp mutates or reads the cart owned by userID. A nil cart with a nil error means the
// operation has nothing to return and the handler answers 204.
type cartOp func(r *http.Request, userID uuid.UUID) (*cartsvc.CartDTO, error)

func ownCart(svc cartsvc.Service, logg *logger.Logger, status int, op cartOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		cart, err := op(r, actor.UserID)
		switch {
		case err != nil:
			responses.WriteError(ctx, logg, w, err)
		case cart == nil:
			responses.WriteNoContent(w)
		default:
			responses.WriteSuccessStatus(w, status, cart)
		}
	}
}

// CartFetch returns the caller's cart with live prices and availability.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownCart(svc, logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (*cartsvc.CartDTO, error) {
		return svc.GetCart(r.Context(), userID)
	})
}

func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownCart(svc, logg, http.StatusCreated, func(r *http.Request, userID uuid.UUID) (*cartsvc.CartDTO, error) {
		var body cartsvc.AddItemInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.AddItem(r.Context(), userID, body)
	})
}

// CartUpdateItem sets a line quantity; zero removes the line.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownCart(svc, logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (*cartsvc.CartDTO, error) {
		itemID, err := validators.ParseURLUUID(r, "itemId")
		if err != nil {
			return nil, err
		}
		var body cartsvc.UpdateItemInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.UpdateItem(r.Context(), userID, itemID, body)
	})
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownCart(svc, logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (*cartsvc.CartDTO, error) {
		itemID, err := validators.ParseURLUUID(r, "itemId")
		if err != nil {
			return nil, err
		}
		return svc.RemoveItem(r.Context(), userID, itemID)
	})
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownCart(svc, logg, http.StatusNoContent, func(r *http.Request, userID uuid.UUID) (*cartsvc.CartDTO, error) {
		return nil, svc.Clear(r.Context(), userID)
	})
}
