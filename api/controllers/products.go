package controllers

import (
	"net/http"
	"strings"

	"github.com/storelyhq/storely-backend/api/responses"
	"github.com/storelyhq/storely-backend/api/validators"
	product "github.com/storelyhq/storely-backend/internal/products"
	"github.com/storelyhq/storely-backend/pkg/logger"
)

// ProductsList returns the public catalog, optionally filtered by name.
func ProductsList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters := product.ListFilters{
			Name: strings.TrimSpace(r.URL.Query().Get("name")),
		}

		rows, err := svc.ListProducts(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

// ProductGet returns one product by its public id.
func ProductGet(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.UUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}
