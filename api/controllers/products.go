package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/validators"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxSearchLength = 100

// ListProducts returns a catalog page. The admin variant also lists inactive products.
func ListProducts(svc product.Service, includeInactive bool, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "product", svc != nil, func(r *http.Request) (int, any, error) {
		page, err := parsePage(r)
		if err != nil {
			return 0, nil, err
		}
		query := r.URL.Query()
		input := product.ListProductsInput{
			Search:          validators.SanitizeString(query.Get("search"), maxSearchLength),
			IncludeInactive: includeInactive,
			Limit:           page.Limit,
			Cursor:          page.Cursor,
		}
		if raw := strings.TrimSpace(query.Get("category")); raw != "" {
			category := enums.ProductCategory(strings.ToLower(raw))
			input.Category = &category
		}
		result, err := svc.ListProducts(r.Context(), input)
		return http.StatusOK, result, err
	})
}

// GetProduct returns one product; inactive products are visible to admins only.
func GetProduct(svc product.Service, includeInactive bool, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "product", svc != nil, func(r *http.Request) (int, any, error) {
		id, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			return 0, nil, err
		}
		dto, err := svc.GetProduct(r.Context(), id, includeInactive)
		return http.StatusOK, dto, err
	})
}

func AdminCreateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "product")
	}
	return bodyAction(logg, http.StatusCreated, svc.CreateProduct)
}

func AdminUpdateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "product", svc != nil, func(r *http.Request) (int, any, error) {
		id, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			return 0, nil, err
		}
		body, err := decode[product.UpdateProductInput](r)
		if err != nil {
			return 0, nil, err
		}
		dto, err := svc.UpdateProduct(r.Context(), id, body)
		return http.StatusOK, dto, err
	})
}

func AdminDeleteProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "product", svc != nil, func(r *http.Request) (int, any, error) {
		id, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, svc.DeleteProduct(r.Context(), id)
	})
}

// AdminSetStock overwrites the aggregate stock, or one variation's stock when variation_id is given.
func AdminSetStock(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "product", svc != nil, func(r *http.Request) (int, any, error) {
		id, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			return 0, nil, err
		}
		body, err := decode[product.SetStockInput](r)
		if err != nil {
			return 0, nil, err
		}
		dto, err := svc.SetStock(r.Context(), id, body)
		return http.StatusOK, dto, err
	})
}
