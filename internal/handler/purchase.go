package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/florist/internal/codec"
)

func (h *Handler) quotePurchase(w http.ResponseWriter, r *http.Request) {
	var body purchaseBody
	if err := decodeBody(w, r, &body, body.decode); err != nil {
		writeErr(w, r, err)
		return
	}
	q, err := h.purchases.Quote(r.Context(), body.request())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		codec.PurchaseQuote(e, q)
	})
}

func (h *Handler) recordPurchase(w http.ResponseWriter, r *http.Request) {
	var body purchaseBody
	if err := decodeBody(w, r, &body, body.decode); err != nil {
		writeErr(w, r, err)
		return
	}
	p, err := h.purchases.Record(r.Context(), body.request())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/purchase/"+p.ID)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		codec.Purchase(e, p)
	})
}

func (h *Handler) getPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := h.purchases.GetPurchase(r.Context(), chi.URLParam(r, "purchaseId"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		codec.Purchase(e, p)
	})
}
