package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"nosam/internal/core"
	"nosam/internal/log"
	"nosam/internal/products"
	"nosam/internal/services"
)

type productsResponse struct {
	Products []core.Product `json:"products"`
	Source   products.Tier  `json:"source"`
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		display := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
		dash, err := deps.Stats.Dashboard(r.Context(), display)
		if err != nil {
			fail(w, r, "stats", err)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}

func handleRenewals(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renewals, err := deps.Stats.Renewals(r.Context())
		if err != nil {
			fail(w, r, "renewals", err)
			return
		}
		if renewals == nil {
			renewals = []services.Renewal{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"renewals": renewals})
	}
}

func handleActiveProducts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, tier := deps.Catalog.Active(r.Context())
		writeJSON(w, http.StatusOK, productsResponse{Products: nonNil(list), Source: tier})
	}
}

func handleSearchProducts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, tier := deps.Catalog.Search(r.Context(), r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, productsResponse{Products: nonNil(list), Source: tier})
	}
}

func handleProductDetails(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		p, ok, tier := deps.Catalog.Details(r.Context(), name)
		if !ok {
			httpError(w, http.StatusNotFound, log.ErrorTypeNotFound, "product %q not found", name)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": p, "source": tier})
	}
}

func handleSeedProducts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Catalog.SeedDefaults(r.Context())
		if err != nil {
			fail(w, r, log.OpSeed, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"seeded": n})
	}
}

func nonNil(list []core.Product) []core.Product {
	if list == nil {
		return []core.Product{}
	}
	return list
}
