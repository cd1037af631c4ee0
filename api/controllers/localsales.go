package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/localsales"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const localSalesName = "local sales"

// AdminCreateLocalSale records an in-store sale and deducts its stock.
func AdminCreateLocalSale(svc localsales.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, localSalesName, svc != nil, func(r *http.Request) (int, any, error) {
		actor, err := actorOf(r)
		if err != nil {
			return 0, nil, err
		}
		body, err := decode[localsales.CreateSaleInput](r)
		if err != nil {
			return 0, nil, err
		}
		dto, err := svc.Create(r.Context(), actor.UserID, body)
		return http.StatusCreated, dto, err
	})
}

func AdminListLocalSales(svc localsales.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, localSalesName, svc != nil, func(r *http.Request) (int, any, error) {
		page, err := parsePage(r)
		if err != nil {
			return 0, nil, err
		}
		query := r.URL.Query()
		list, err := svc.List(r.Context(), localsales.ListSalesInput{
			From:   query.Get("from"),
			To:     query.Get("to"),
			Limit:  page.Limit,
			Cursor: page.Cursor,
		})
		return http.StatusOK, list, err
	})
}

func AdminGetLocalSale(svc localsales.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, localSalesName, svc != nil, func(r *http.Request) (int, any, error) {
		id, err := validators.ParseURLUUID(r, "saleId")
		if err != nil {
			return 0, nil, err
		}
		dto, err := svc.Get(r.Context(), id)
		return http.StatusOK, dto, err
	})
}

// AdminDeleteLocalSale removes the invoice; the stock it consumed stays deducted.
func AdminDeleteLocalSale(svc localsales.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, localSalesName, svc != nil, func(r *http.Request) (int, any, error) {
		id, err := validators.ParseURLUUID(r, "saleId")
		if err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, svc.Delete(r.Context(), id)
	})
}

// AdminExportLocalSales streams the sales of a date window as an xlsx workbook.
func AdminExportLocalSales(svc localsales.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, localSalesName)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		export, err := svc.Export(r.Context(), query.Get("from"), query.Get("to"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "rows", export.Rows), "local_sales.export")
		}
		responses.WriteAttachment(w, export.Filename, export.ContentType, export.Body)
	}
}
