package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/nks-storefront/internal/domain/catalog"
	"github.com/xenking/nks-storefront/internal/domain/product"
)

// listProducts filters the catalog by the query selection. A catalog read
// failure renders an empty catalog.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	sel, err := catalog.ParseSelection(r.URL.Query())
	if err != nil {
		var ipErr *catalog.InvalidParamError
		if errors.As(err, &ipErr) {
			writeError(w, http.StatusBadRequest, ipErr.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid query")
		return
	}

	products, err := h.products.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("List products failed", zap.Error(err))
		products = nil
	}

	res := catalog.Apply(products, sel)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCatalog(e, res)
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p := h.details.Fetch(r.Context(), chi.URLParam(r, "id"))
	if p == nil {
		writeError(w, http.StatusNotFound, product.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProduct(e, *p)
	})
}
