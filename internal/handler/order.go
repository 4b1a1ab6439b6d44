package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/florist/internal/codec"
)

func (h *Handler) quoteOrder(w http.ResponseWriter, r *http.Request) {
	var body orderBody
	if err := decodeBody(w, r, &body, body.decode); err != nil {
		writeErr(w, r, err)
		return
	}
	q, err := h.orders.Quote(r.Context(), body.request())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	q.Products = h.withImages(q.Products)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		codec.OrderQuote(e, q)
	})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var body orderBody
	if err := decodeBody(w, r, &body, body.decode); err != nil {
		writeErr(w, r, err)
		return
	}
	res, err := h.orders.PlaceOrder(r.Context(), body.request())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	products := h.withImages(res.Products)
	w.Header().Set("Location", "/api/order/"+res.Order.ID)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		codec.Order(e, res.Order, products)
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		codec.Order(e, o, nil)
	})
}
