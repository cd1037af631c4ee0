package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/settings"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memoryCache struct {
	stubPinger
	mu   sync.Mutex
	data map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]string{}}
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *memoryCache) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	switch v := value.(type) {
	case string:
		m.data[key] = v
	case []byte:
		m.data[key] = string(v)
	}
	return true, nil
}

func (m *memoryCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryCache) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryCache) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return true, 1, nil
}

// Unimplemented methods panic through the embedded nil interface.
type stubProductService struct {
	product.Service
	listed []product.ListProductsInput
}

func (s *stubProductService) ListProducts(ctx context.Context, input product.ListProductsInput) (*product.ProductListResult, error) {
	s.listed = append(s.listed, input)
	return &product.ProductListResult{Items: []product.ProductDTO{}}, nil
}

type stubCartService struct {
	cart.Service
}

func (stubCartService) GetCart(ctx context.Context, userID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

type stubOrdersService struct {
	orders.Service
	created int
}

func (s *stubOrdersService) List(ctx context.Context, input orders.ListOrdersInput) (*orders.OrderList, error) {
	return &orders.OrderList{Items: []orders.OrderDTO{}}, nil
}

func (s *stubOrdersService) Create(ctx context.Context, userID uuid.UUID, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	s.created++
	return &orders.OrderDTO{ID: uuid.New()}, nil
}

type stubNotificationsService struct {
	notifications.Service
}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

type stubSettingsService struct{}

func (stubSettingsService) Get(ctx context.Context) (*settings.SettingsDTO, error) {
	return &settings.SettingsDTO{StoreName: "Corner Shop", Currency: "USD"}, nil
}

func (stubSettingsService) Update(ctx context.Context, input settings.UpdateSettingsInput) (*settings.SettingsDTO, error) {
	return &settings.SettingsDTO{StoreName: "Corner Shop", Currency: "USD"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "storefront-test",
			ExpirationMinutes: 60,
		},
	}
}

type testRouter struct {
	handler  http.Handler
	products *stubProductService
	orders   *stubOrdersService
}

func newTestRouter(t *testing.T, cfg *config.Config) testRouter {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	products := &stubProductService{}
	ordersSvc := &stubOrdersService{}
	handler := NewRouter(Params{
		Config:        cfg,
		Logger:        logg,
		DB:            stubPinger{},
		Cache:         newMemoryCache(),
		Gatherer:      prometheus.NewRegistry(),
		Products:      products,
		Cart:          stubCartService{},
		Orders:        ordersSvc,
		Settings:      stubSettingsService{},
		Notifications: stubNotificationsService{},
	})
	return testRouter{handler: handler, products: products, orders: ordersSvc}
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, _, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "user@example.com",
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestPublicCatalogHidesInactiveProducts(t *testing.T) {
	tr := newTestRouter(t, testConfig())
	resp := serve(tr.handler, httptest.NewRequest(http.MethodGet, "/api/products?search=mug", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(tr.products.listed) != 1 {
		t.Fatalf("expected one list call got %d", len(tr.products.listed))
	}
	if tr.products.listed[0].IncludeInactive {
		t.Fatalf("public listing must exclude inactive products")
	}
	if tr.products.listed[0].Search != "mug" {
		t.Fatalf("expected search term to pass through, got %q", tr.products.listed[0].Search)
	}
}

func TestAdminCatalogIncludesInactiveProducts(t *testing.T) {
	cfg := testConfig()
	tr := newTestRouter(t, cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/products", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp := serve(tr.handler, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !tr.products.listed[0].IncludeInactive {
		t.Fatalf("admin listing must include inactive products")
	}
}

func TestCustomerRoutesRejectMissingJWT(t *testing.T) {
	tr := newTestRouter(t, testConfig())
	for _, path := range []string{"/api/cart", "/api/orders", "/api/shipments", "/api/returns"} {
		resp := serve(tr.handler, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without token got %d", path, resp.Code)
		}
	}
}

func TestCustomerRoutesSucceedWithJWT(t *testing.T) {
	cfg := testConfig()
	tr := newTestRouter(t, cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := serve(tr.handler, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	tr := newTestRouter(t, cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/admin/notifications", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	if resp := serve(tr.handler, customer); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/notifications", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	if resp := serve(tr.handler, admin); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}

	anonymous := httptest.NewRequest(http.MethodGet, "/api/admin/notifications", nil)
	if resp := serve(tr.handler, anonymous); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestOrderCreationRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	tr := newTestRouter(t, cfg)
	token := buildToken(t, cfg, enums.UserRoleCustomer)
	body := `{"payment_method":"cash_on_delivery","shipping_address":{"full_name":"Ada","phone":"555","line1":"1 Main","city":"Town","postal_code":"10001","country":"US"}}`

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	resp := serve(tr.handler, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}
	if tr.orders.created != 0 {
		t.Fatalf("order service must not be reached without a key")
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "order-1")
		resp := serve(tr.handler, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d: %s", i, resp.Code, resp.Body.String())
		}
	}
	if tr.orders.created != 1 {
		t.Fatalf("expected the replay to skip the service, got %d creates", tr.orders.created)
	}
}

func TestPublicSettingsAndProbes(t *testing.T) {
	tr := newTestRouter(t, testConfig())

	resp := serve(tr.handler, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for settings got %d", resp.Code)
	}
	var envelope struct {
		Data settings.SettingsDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if envelope.Data.StoreName != "Corner Shop" {
		t.Fatalf("unexpected store name %q", envelope.Data.StoreName)
	}

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		if resp := serve(tr.handler, httptest.NewRequest(http.MethodGet, path, nil)); resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestAdminRegisterOnlyOutsideProd(t *testing.T) {
	cfg := testConfig()
	cfg.App.Env = "prod"
	tr := newTestRouter(t, cfg)
	resp := serve(tr.handler, httptest.NewRequest(http.MethodPost, "/api/admin/auth/register", strings.NewReader(`{}`)))
	if resp.Code != http.StatusUnauthorized && resp.Code != http.StatusNotFound && resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("admin bootstrap must be unreachable in prod, got %d", resp.Code)
	}
}
