package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type stubProductService struct {
	product.Service
	getFn      func(ctx context.Context, id uuid.UUID, includeInactive bool) (*product.ProductDTO, error)
	setStockFn func(ctx context.Context, id uuid.UUID, input product.SetStockInput) (*product.ProductDTO, error)
	deleted    []uuid.UUID
	listed     []product.ListProductsInput
}

func (s *stubProductService) GetProduct(ctx context.Context, id uuid.UUID, includeInactive bool) (*product.ProductDTO, error) {
	return s.getFn(ctx, id, includeInactive)
}

func (s *stubProductService) SetStock(ctx context.Context, id uuid.UUID, input product.SetStockInput) (*product.ProductDTO, error) {
	return s.setStockFn(ctx, id, input)
}

func (s *stubProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubProductService) ListProducts(ctx context.Context, input product.ListProductsInput) (*product.ProductListResult, error) {
	s.listed = append(s.listed, input)
	return &product.ProductListResult{Items: []product.ProductDTO{}}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestGetProductInvalidID(t *testing.T) {
	svc := &stubProductService{}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/products/nope", nil), "productId", "nope")
	rec := httptest.NewRecorder()
	GetProduct(svc, false, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
	}
}

func TestGetProductHidesInactiveFromPublic(t *testing.T) {
	productID := uuid.New()
	var sawInclude bool
	svc := &stubProductService{
		getFn: func(ctx context.Context, id uuid.UUID, includeInactive bool) (*product.ProductDTO, error) {
			sawInclude = includeInactive
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		},
	}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/products/"+productID.String(), nil), "productId", productID.String())
	rec := httptest.NewRecorder()
	GetProduct(svc, false, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if sawInclude {
		t.Fatal("public lookup must not include inactive products")
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeNotFound) || envelope.Error.Message != "product not found" {
		t.Fatalf("unexpected error envelope %+v", envelope.Error)
	}
}

func TestListProductsParsesFilters(t *testing.T) {
	svc := &stubProductService{}
	req := httptest.NewRequest(http.MethodGet, "/api/products?category=Flower&search=+blue+&limit=5", nil)
	rec := httptest.NewRecorder()
	ListProducts(svc, false, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(svc.listed) != 1 {
		t.Fatalf("expected one list call, got %d", len(svc.listed))
	}
	got := svc.listed[0]
	if got.Category == nil || string(*got.Category) != "flower" {
		t.Fatalf("expected lowercased category, got %v", got.Category)
	}
	if got.Search != "blue" || got.Limit != 5 || got.IncludeInactive {
		t.Fatalf("unexpected list input %+v", got)
	}
}

func TestListProductsRejectsOversizedLimit(t *testing.T) {
	svc := &stubProductService{}
	req := httptest.NewRequest(http.MethodGet, "/api/products?limit=100000", nil)
	rec := httptest.NewRecorder()
	ListProducts(svc, true, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(svc.listed) != 0 {
		t.Fatal("service must not be called on invalid limit")
	}
}

func TestAdminSetStock(t *testing.T) {
	productID := uuid.New()
	variationID := uuid.New()

	t.Run("negative stock", func(t *testing.T) {
		svc := &stubProductService{}
		req := httptest.NewRequest(http.MethodPut, "/api/admin/products/"+productID.String()+"/stock", strings.NewReader(`{"stock":-1}`))
		req = withURLParam(req, "productId", productID.String())
		rec := httptest.NewRecorder()
		AdminSetStock(svc, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("variation stock", func(t *testing.T) {
		var got product.SetStockInput
		svc := &stubProductService{
			setStockFn: func(ctx context.Context, id uuid.UUID, input product.SetStockInput) (*product.ProductDTO, error) {
				if id != productID {
					t.Fatalf("unexpected product %s", id)
				}
				got = input
				return &product.ProductDTO{ID: id, Stock: input.Stock}, nil
			},
		}
		body := `{"variation_id":"` + variationID.String() + `","stock":7}`
		req := httptest.NewRequest(http.MethodPut, "/api/admin/products/"+productID.String()+"/stock", strings.NewReader(body))
		req = withURLParam(req, "productId", productID.String())
		rec := httptest.NewRecorder()
		AdminSetStock(svc, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.VariationID == nil || *got.VariationID != variationID || got.Stock != 7 {
			t.Fatalf("unexpected stock input %+v", got)
		}
	})
}

func TestAdminDeleteProduct(t *testing.T) {
	productID := uuid.New()
	svc := &stubProductService{}
	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/admin/products/"+productID.String(), nil), "productId", productID.String())
	rec := httptest.NewRecorder()
	AdminDeleteProduct(svc, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != productID {
		t.Fatalf("expected DeleteProduct(%s), got %v", productID, svc.deleted)
	}
}

func TestProductHandlersWithoutService(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	ListProducts(nil, false, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without a service, got %d", rec.Code)
	}
}
