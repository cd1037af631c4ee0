package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/localsales"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubLocalSalesService struct {
	localsales.Service
	exportFn func(ctx context.Context, from, to string) (*localsales.Export, error)
	created  []uuid.UUID
}

func (s *stubLocalSalesService) Export(ctx context.Context, from, to string) (*localsales.Export, error) {
	return s.exportFn(ctx, from, to)
}

func (s *stubLocalSalesService) Create(ctx context.Context, actorID uuid.UUID, input localsales.CreateSaleInput) (*localsales.SaleDTO, error) {
	s.created = append(s.created, actorID)
	return &localsales.SaleDTO{}, nil
}

func TestAdminExportLocalSalesWritesAttachment(t *testing.T) {
	var gotFrom, gotTo string
	svc := &stubLocalSalesService{
		exportFn: func(ctx context.Context, from, to string) (*localsales.Export, error) {
			gotFrom, gotTo = from, to
			return &localsales.Export{
				Filename:    "local-sales-2026-01-01-2026-01-31.xlsx",
				ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				Body:        []byte("PK\x03\x04"),
				Rows:        3,
			}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/local-sales/export?from=2026-01-01&to=2026-01-31", nil)
	rec := httptest.NewRecorder()
	AdminExportLocalSales(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotFrom != "2026-01-01" || gotTo != "2026-01-31" {
		t.Fatalf("unexpected window %q..%q", gotFrom, gotTo)
	}
	if disp := rec.Header().Get("Content-Disposition"); !strings.Contains(disp, `filename="local-sales-2026-01-01-2026-01-31.xlsx"`) {
		t.Fatalf("unexpected content disposition %q", disp)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if rec.Body.String() != "PK\x03\x04" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestAdminExportLocalSalesInvalidRange(t *testing.T) {
	svc := &stubLocalSalesService{
		exportFn: func(ctx context.Context, from, to string) (*localsales.Export, error) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/local-sales/export?from=2026-02-01&to=2026-01-01", nil)
	rec := httptest.NewRecorder()
	AdminExportLocalSales(svc, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("errors must stay json, got %q", ct)
	}
}

func TestAdminCreateLocalSaleRequiresActor(t *testing.T) {
	svc := &stubLocalSalesService{}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/local-sales", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	AdminCreateLocalSale(svc, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without actor, got %d", rec.Code)
	}
	if len(svc.created) != 0 {
		t.Fatal("service must not be called without actor")
	}
}

func TestAdminCreateLocalSaleRejectsUnknownFields(t *testing.T) {
	adminID := uuid.New()
	svc := &stubLocalSalesService{}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/local-sales", strings.NewReader(`{"unexpected":true}`))
	req = req.WithContext(middleware.WithActor(req.Context(), middleware.Actor{UserID: adminID, Role: enums.UserRoleAdmin}))
	rec := httptest.NewRecorder()
	AdminCreateLocalSale(svc, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}
