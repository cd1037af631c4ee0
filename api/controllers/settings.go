package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-backend/internal/settings"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type settingsService interface {
	Get(ctx context.Context) (*settings.SettingsDTO, error)
	Update(ctx context.Context, input settings.UpdateSettingsInput) (*settings.SettingsDTO, error)
}

func GetSettings(svc settingsService, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "settings", svc != nil, func(r *http.Request) (int, any, error) {
		dto, err := svc.Get(r.Context())
		return http.StatusOK, dto, err
	})
}

func AdminUpdateSettings(svc settingsService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "settings")
	}
	return bodyAction(logg, http.StatusOK, svc.Update)
}
