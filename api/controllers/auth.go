package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// AuthRegister opens a customer account and answers 201 with its first access token.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "auth")
	}
	return bodyAction(logg, http.StatusCreated, svc.Register)
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "auth")
	}
	return bodyAction(logg, http.StatusOK, svc.Login)
}

// AdminAuthRegister creates an admin account. The router mounts it only outside production.
func AdminAuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "auth")
	}
	return bodyAction(logg, http.StatusCreated, svc.RegisterAdmin)
}
