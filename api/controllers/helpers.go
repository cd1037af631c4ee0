package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// endpoint handles one request and reports what to write back. Handlers built with handle
// never touch the ResponseWriter themselves.
type endpoint func(r *http.Request) (status int, body any, err error)

// handle turns an endpoint into a handler. When ready is false the service behind the route was
// never wired and every request gets an internal error naming it.
func handle(logg *logger.Logger, name string, ready bool, fn endpoint) http.HandlerFunc {
	if !ready {
		return unavailableHandler(logg, name)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		status, body, err := fn(r)
		switch {
		case err != nil:
			responses.WriteError(r.Context(), logg, w, err)
		case status == http.StatusNoContent:
			responses.WriteNoContent(w)
		default:
			responses.WriteSuccessStatus(w, status, body)
		}
	}
}

// bodyAction decodes and validates a JSON body into In, passes it to run and writes the result with status.
func bodyAction[In, Out any](logg *logger.Logger, status int, run func(context.Context, In) (Out, error)) http.HandlerFunc {
	return handle(logg, "", true, func(r *http.Request) (int, any, error) {
		in, err := decode[In](r)
		if err != nil {
			return 0, nil, err
		}
		out, err := run(r.Context(), in)
		return status, out, err
	})
}

func decode[T any](r *http.Request) (T, error) {
	var v T
	err := validators.DecodeJSONBody(r, &v)
	return v, err
}

// actorOf returns the authenticated caller, or an unauthorized error for anonymous requests.
func actorOf(r *http.Request) (middleware.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return middleware.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return actor, nil
}

type pageParams struct {
	Limit  int
	Cursor string
	Status string
}

func parsePage(r *http.Request) (pageParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pageParams{}, err
	}
	return pageParams{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
	}, nil
}

func unavailableHandler(logg *logger.Logger, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
	}
}
