package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/returns"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CreateReturn files a return request against a delivered order or local sale.
func CreateReturn(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "returns", svc != nil, func(r *http.Request) (int, any, error) {
		actor, err := actorOf(r)
		if err != nil {
			return 0, nil, err
		}
		body, err := decode[returns.CreateReturnInput](r)
		if err != nil {
			return 0, nil, err
		}
		dto, err := svc.Create(r.Context(), actor.UserID, body)
		return http.StatusCreated, dto, err
	})
}

// ListReturns pages return requests. Admins see all of them, customers only their own.
func ListReturns(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "returns", svc != nil, func(r *http.Request) (int, any, error) {
		actor, err := actorOf(r)
		if err != nil {
			return 0, nil, err
		}
		page, err := parsePage(r)
		if err != nil {
			return 0, nil, err
		}
		input := returns.ListReturnsInput{Status: page.Status, Limit: page.Limit, Cursor: page.Cursor}
		if !actor.IsAdmin() {
			input.UserID = &actor.UserID
		}
		list, err := svc.List(r.Context(), input)
		return http.StatusOK, list, err
	})
}

func GetReturn(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "returns", svc != nil, func(r *http.Request) (int, any, error) {
		actor, err := actorOf(r)
		if err != nil {
			return 0, nil, err
		}
		id, err := validators.ParseURLUUID(r, "returnId")
		if err != nil {
			return 0, nil, err
		}
		dto, err := svc.Get(r.Context(), returns.Viewer{UserID: actor.UserID, Admin: actor.IsAdmin()}, id)
		return http.StatusOK, dto, err
	})
}

func AdminUpdateReturnStatus(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "returns", svc != nil, func(r *http.Request) (int, any, error) {
		actor, err := actorOf(r)
		if err != nil {
			return 0, nil, err
		}
		id, err := validators.ParseURLUUID(r, "returnId")
		if err != nil {
			return 0, nil, err
		}
		body, err := decode[returns.StatusRequest](r)
		if err != nil {
			return 0, nil, err
		}
		dto, err := svc.UpdateStatus(r.Context(), returns.UpdateStatusInput{
			ReturnID:    id,
			Status:      body.Status,
			AdminNote:   body.AdminNote,
			ActorUserID: actor.UserID,
			ActorRole:   actor.Role,
		})
		return http.StatusOK, dto, err
	})
}
