// Package handler exposes the catalog, order and purchase operations over
// HTTP.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/florist/internal/codec"
	"github.com/xenking/florist/internal/domain/coupon"
	"github.com/xenking/florist/internal/domain/order"
	"github.com/xenking/florist/internal/domain/pricing"
	"github.com/xenking/florist/internal/domain/product"
	"github.com/xenking/florist/internal/domain/purchase"
	"github.com/xenking/florist/pkg/httpmiddleware"
)

// Products reads the product catalog.
type Products interface {
	List(ctx context.Context) ([]product.Product, error)
	GetByID(ctx context.Context, id string) (*product.Product, error)
}

// Catalog lists the reference data shown next to the order form.
type Catalog interface {
	ShippingMethods(ctx context.Context) ([]pricing.ShippingMethod, error)
	Coupons(ctx context.Context) ([]coupon.Rule, error)
}

// Orders prices, places and reads customer orders.
type Orders interface {
	Quote(ctx context.Context, req order.PlaceOrderRequest) (*order.Quote, error)
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
	GetOrder(ctx context.Context, id string) (*order.Order, error)
}

// Purchases prices, records and reads supplier purchases.
type Purchases interface {
	Quote(ctx context.Context, req purchase.RecordRequest) (*purchase.Quote, error)
	Record(ctx context.Context, req purchase.RecordRequest) (*purchase.Purchase, error)
	GetPurchase(ctx context.Context, id string) (*purchase.Purchase, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
}

// Handler serves the /api routes.
type Handler struct {
	products     Products
	catalog      Catalog
	orders       Orders
	purchases    Purchases
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products Products,
	catalog Catalog,
	orders Orders,
	purchases Purchases,
) *Handler {
	return &Handler{
		products:     products,
		catalog:      catalog,
		orders:       orders,
		purchases:    purchases,
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
	}
}

// Router returns a chi router with every API route mounted under /api.
// Callers may mount further routes, such as health probes, on the result.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(httpmiddleware.LogRequests(), httpmiddleware.Labeler())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/product", h.listProducts)
		r.Get("/product/{productId}", h.getProduct)
		r.Get("/coupon", h.listCoupons)
		r.Get("/shipping-method", h.listShippingMethods)

		r.Post("/order/quote", h.quoteOrder)
		r.Post("/order", h.placeOrder)
		r.Get("/order/{orderId}", h.getOrder)

		r.Post("/purchase/quote", h.quotePurchase)
		r.Post("/purchase", h.recordPurchase)
		r.Get("/purchase/{purchaseId}", h.getPurchase)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(codec.Marshal(encode))
}

// imageURL resolves a stored image path against the configured base URL.
// Absolute URLs are returned unchanged.
func (h *Handler) imageURL(path string) string {
	if path == "" || h.imageBaseURL == "" {
		return path
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return h.imageBaseURL + "/" + strings.TrimLeft(path, "/")
}

func (h *Handler) withImages(products []product.Product) []product.Product {
	out := make([]product.Product, len(products))
	for i, p := range products {
		p.ImageURL = h.imageURL(p.ImageURL)
		out[i] = p
	}
	return out
}
