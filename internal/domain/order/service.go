package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/florist/internal/domain/catalog"
	"github.com/xenking/florist/internal/domain/draft"
	"github.com/xenking/florist/internal/domain/pricing"
	"github.com/xenking/florist/internal/domain/product"
	"github.com/xenking/florist/internal/domain/shipping"
)

// Catalog loads the reference data an order is priced against.
type Catalog interface {
	Load(ctx context.Context, q catalog.Query) (*catalog.Snapshot, error)
}

// Publisher announces placed orders to other systems.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, o *Order) error
}

// ItemRequest is a requested order line. Unit prices always come from the
// catalog.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest holds the input for quoting or placing an order.
type PlaceOrderRequest struct {
	CustomerName     string
	Items            []ItemRequest
	CouponCode       string
	ShippingMethodID string
}

// Quote is a priced but unsaved order.
type Quote struct {
	Items            []Item
	Products         []product.Product
	Breakdown        pricing.Breakdown
	CouponCode       string
	ShippingMethodID string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *Order
	Products []product.Product
}

// Service encapsulates order pricing and placement.
type Service struct {
	catalog Catalog
	orders  Repository
	events  Publisher
	now     func() time.Time

	placed metric.Int64Counter
	totals metric.Float64Histogram
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	c Catalog,
	orders Repository,
	events Publisher,
	meter metric.Meter,
) (*Service, error) {
	placed, err := meter.Int64Counter("florist.orders.placed",
		metric.WithDescription("Number of placed orders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders placed counter")
	}
	totals, err := meter.Float64Histogram("florist.order.total",
		metric.WithDescription("Order totals"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "order total histogram")
	}
	return &Service{
		catalog: c,
		orders:  orders,
		events:  events,
		now:     time.Now,
		placed:  placed,
		totals:  totals,
	}, nil
}

// Quote validates the request, loads prices, the coupon and shipping methods,
// and returns the computed breakdown without persisting anything.
func (s *Service) Quote(ctx context.Context, req PlaceOrderRequest) (*Quote, error) {
	if len(req.Items) == 0 {
		return nil, draft.ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &draft.InvalidQuantityError{Index: i, ProductID: item.ProductID, Quantity: item.Quantity}
		}
		ids[i] = item.ProductID
	}

	snap, err := s.catalog.Load(ctx, catalog.Query{
		ProductIDs: ids,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}

	if req.ShippingMethodID != "" {
		if _, ok := shipping.Find(snap.ShippingMethods, req.ShippingMethodID); !ok {
			return nil, errors.Wrapf(shipping.ErrUnknownMethod, "%q", req.ShippingMethodID)
		}
	}

	d := draft.New(draft.KindOrder, snap.ShippingMethods)
	products := make([]product.Product, 0, len(req.Items))
	items := make([]Item, 0, len(req.Items))
	for _, item := range req.Items {
		p, ok := snap.Product(item.ProductID)
		if !ok {
			return nil, &product.NotFoundError{ProductID: item.ProductID}
		}
		products = append(products, p)
		items = append(items, Item{
			ProductID: p.ID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
		})
		d.AddItem(pricing.LineItem{
			ProductID: p.ID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
		})
	}
	if err := draft.ValidateItems(d.Items()); err != nil {
		return nil, err
	}
	d.SelectCoupon(snap.Coupon)
	d.SelectShipping(req.ShippingMethodID)

	return &Quote{
		Items:            items,
		Products:         products,
		Breakdown:        d.Breakdown(),
		CouponCode:       req.CouponCode,
		ShippingMethodID: req.ShippingMethodID,
	}, nil
}

// PlaceOrder prices the request, persists the order and announces it.
// A failed announcement is logged and does not fail the order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	q, err := s.Quote(ctx, req)
	if err != nil {
		return nil, err
	}

	b := q.Breakdown
	o := &Order{
		ID:               uuid.New().String(),
		CustomerName:     req.CustomerName,
		Items:            q.Items,
		Subtotal:         b.Subtotal,
		Discount:         b.Discount,
		ShippingCost:     b.ShippingCost,
		Total:            b.Total,
		CouponCode:       q.CouponCode,
		ShippingMethodID: q.ShippingMethodID,
		Status:           StatusPending,
		PaymentStatus:    draft.PaymentUnpaid,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	lg := zctx.From(ctx).With(zap.String("order_id", o.ID))
	lg.Info("Order placed",
		zap.String("total", o.Total.StringFixed(2)),
		zap.String("coupon", o.CouponCode),
	)
	if err := s.events.PublishOrderPlaced(ctx, o); err != nil {
		lg.Warn("Publish order placed", zap.Error(err))
	}

	attrs := metric.WithAttributes(attribute.Bool("coupon", o.CouponCode != ""))
	s.placed.Add(ctx, 1, attrs)
	s.totals.Record(ctx, o.Total.InexactFloat64(), attrs)

	return &PlaceOrderResult{
		Order:    o,
		Products: q.Products,
	}, nil
}

// GetOrder returns a placed order by id.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}
