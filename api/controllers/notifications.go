package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// ListNotifications returns the admin notification feed, newest first. ?unread=true drops read entries.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "notifications", svc != nil, func(r *http.Request) (int, any, error) {
		page, err := parsePage(r)
		if err != nil {
			return 0, nil, err
		}
		unread, err := validators.ParseQueryBool(r, "unread")
		if err != nil {
			return 0, nil, err
		}
		feed, err := svc.List(r.Context(), notifications.ListParams{Limit: page.Limit, Cursor: page.Cursor, UnreadOnly: unread})
		return http.StatusOK, feed, err
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "notifications", svc != nil, func(r *http.Request) (int, any, error) {
		id, err := validators.ParseURLUUID(r, "notificationId")
		if err != nil {
			return 0, nil, err
		}
		if err := svc.MarkRead(r.Context(), id); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, map[string]any{"id": id, "read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "notifications", svc != nil, func(r *http.Request) (int, any, error) {
		updated, err := svc.MarkAllRead(r.Context())
		return http.StatusOK, map[string]int64{"updated": updated}, err
	})
}
