package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/shipments"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type shipmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ListShipments pages shipment records; customers only ever see their own.
func ListShipments(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "shipments", svc != nil, func(r *http.Request) (int, any, error) {
		actor, err := actorOf(r)
		if err != nil {
			return 0, nil, err
		}
		page, err := parsePage(r)
		if err != nil {
			return 0, nil, err
		}
		input := shipments.ListShipmentsInput{Status: page.Status, Limit: page.Limit, Cursor: page.Cursor}
		if !actor.IsAdmin() {
			input.UserID = &actor.UserID
		}
		list, err := svc.List(r.Context(), input)
		return http.StatusOK, list, err
	})
}

func GetShipment(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "shipments", svc != nil, func(r *http.Request) (int, any, error) {
		actor, err := actorOf(r)
		if err != nil {
			return 0, nil, err
		}
		id, err := validators.ParseURLUUID(r, "shipmentId")
		if err != nil {
			return 0, nil, err
		}
		dto, err := svc.Get(r.Context(), shipments.Viewer{UserID: actor.UserID, Admin: actor.IsAdmin()}, id)
		return http.StatusOK, dto, err
	})
}

// AdminUpdateShipmentStatus moves a shipment along accepted, shipped, delivered.
func AdminUpdateShipmentStatus(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "shipments", svc != nil, func(r *http.Request) (int, any, error) {
		actor, err := actorOf(r)
		if err != nil {
			return 0, nil, err
		}
		id, err := validators.ParseURLUUID(r, "shipmentId")
		if err != nil {
			return 0, nil, err
		}
		body, err := decode[shipmentStatusRequest](r)
		if err != nil {
			return 0, nil, err
		}
		dto, err := svc.UpdateStatus(r.Context(), shipments.UpdateStatusInput{
			ShipmentID:  id,
			Status:      body.Status,
			ActorUserID: actor.UserID,
			ActorRole:   actor.Role,
		})
		return http.StatusOK, dto, err
	})
}
