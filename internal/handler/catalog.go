package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/florist/internal/codec"
	"github.com/xenking/florist/internal/domain/product"
	"github.com/xenking/florist/pkg/httpmiddleware"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeErr(w, r, errors.Wrap(err, "list products"))
		return
	}
	products = h.withImages(products)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		codec.Products(e, products)
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productId")
	p, err := h.products.GetByID(r.Context(), id)
	switch {
	case errors.Is(err, product.ErrNotFound):
		// A missing path resource is 404 even though order lines report it as 422.
		httpmiddleware.WriteError(w, http.StatusNotFound, product.ErrNotFound.Error())
		return
	case err != nil:
		writeErr(w, r, errors.Wrapf(err, "get product %q", id))
		return
	}
	out := *p
	out.ImageURL = h.imageURL(out.ImageURL)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		codec.Product(e, out)
	})
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	rules, err := h.catalog.Coupons(r.Context())
	if err != nil {
		writeErr(w, r, errors.Wrap(err, "list coupons"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		codec.CouponRules(e, rules)
	})
}

func (h *Handler) listShippingMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.catalog.ShippingMethods(r.Context())
	if err != nil {
		writeErr(w, r, errors.Wrap(err, "list shipping methods"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		codec.ShippingMethods(e, methods)
	})
}
