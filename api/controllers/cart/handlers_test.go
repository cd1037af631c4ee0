package cart

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type stubCartService struct {
	cartsvc.Service
	added   []cartsvc.AddItemInput
	updated map[uuid.UUID]int
	addErr  error
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.CartDTO, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}
	s.added = append(s.added, input)
	return &cartsvc.CartDTO{}, nil
}

func (s *stubCartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input cartsvc.UpdateItemInput) (*cartsvc.CartDTO, error) {
	if s.updated == nil {
		s.updated = map[uuid.UUID]int{}
	}
	s.updated[itemID] = input.Quantity
	return &cartsvc.CartDTO{}, nil
}

func customerRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.WithActor(req.Context(), middleware.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}))
}

func discard() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestCartAddItem(t *testing.T) {
	productID := uuid.New()

	t.Run("created", func(t *testing.T) {
		svc := &stubCartService{}
		body := `{"product_id":"` + productID.String() + `","quantity":2,"selected_variation":{"Size":"M"}}`
		rec := httptest.NewRecorder()
		CartAddItem(svc, discard()).ServeHTTP(rec, customerRequest(http.MethodPost, "/api/cart/items", body))
		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, svc.added, 1)
		assert.Equal(t, productID, svc.added[0].ProductID)
		assert.Equal(t, 2, svc.added[0].Quantity)
		assert.Equal(t, "M", svc.added[0].SelectedVariation["Size"])
	})

	t.Run("zero quantity", func(t *testing.T) {
		svc := &stubCartService{}
		body := `{"product_id":"` + productID.String() + `","quantity":0}`
		rec := httptest.NewRecorder()
		CartAddItem(svc, discard()).ServeHTTP(rec, customerRequest(http.MethodPost, "/api/cart/items", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.added)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		svc := &stubCartService{addErr: pkgerrors.InsufficientStock(1, 2)}
		body := `{"product_id":"` + productID.String() + `","quantity":2}`
		rec := httptest.NewRecorder()
		CartAddItem(svc, discard()).ServeHTTP(rec, customerRequest(http.MethodPost, "/api/cart/items", body))
		assert.Contains(t, rec.Body.String(), string(pkgerrors.CodeInsufficientStock))
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(`{}`))
		CartAddItem(&stubCartService{}, discard()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCartUpdateItemAllowsZero(t *testing.T) {
	itemID := uuid.New()
	svc := &stubCartService{}
	req := customerRequest(http.MethodPatch, "/api/cart/items/"+itemID.String(), `{"quantity":0}`)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("itemId", itemID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rec := httptest.NewRecorder()
	CartUpdateItem(svc, discard()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	qty, ok := svc.updated[itemID]
	require.True(t, ok)
	assert.Equal(t, 0, qty)
}
