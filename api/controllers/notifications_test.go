package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
)

type testNotificationsService struct {
	listFn        func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
	markReadFn    func(ctx context.Context, notificationID uuid.UUID) error
	markAllReadFn func(ctx context.Context) (int64, error)
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &notifications.ListResult{}, nil
}

func (s *testNotificationsService) MarkRead(ctx context.Context, notificationID uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, notificationID)
	}
	return nil
}

func (s *testNotificationsService) MarkAllRead(ctx context.Context) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx)
	}
	return 0, nil
}

func (s *testNotificationsService) Cleanup(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	return 0, nil
}

func TestListNotificationsUnreadFilter(t *testing.T) {
	var got notifications.ListParams
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			got = params
			return &notifications.ListResult{UnreadCount: 2}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/notifications?unread=true&limit=10", nil)
	rec := httptest.NewRecorder()
	ListNotifications(svc, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !got.UnreadOnly || got.Limit != 10 {
		t.Fatalf("unexpected params %+v", got)
	}
	var envelope struct {
		Data notifications.ListResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.UnreadCount != 2 {
		t.Fatalf("expected unread_count 2, got %d", envelope.Data.UnreadCount)
	}
}

func TestListNotificationsInvalidUnread(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/notifications?unread=maybe", nil)
	rec := httptest.NewRecorder()
	ListNotifications(&testNotificationsService{}, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMarkNotificationReadSuccess(t *testing.T) {
	notificationID := uuid.New()
	called := false
	svc := &testNotificationsService{
		markReadFn: func(ctx context.Context, nid uuid.UUID) error {
			called = true
			if nid != notificationID {
				t.Fatalf("unexpected notification %s", nid)
			}
			return nil
		},
	}
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/api/admin/notifications/"+notificationID.String()+"/read", nil), "notificationId", notificationID.String())
	rec := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	svc := &testNotificationsService{
		markAllReadFn: func(ctx context.Context) (int64, error) { return 4, nil },
	}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/notifications/read-all", nil)
	rec := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var envelope struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data["updated"] != 4 {
		t.Fatalf("expected 4 updated, got %v", envelope.Data)
	}
}
