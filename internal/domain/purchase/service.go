package purchase

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/florist/internal/domain/catalog"
	"github.com/xenking/florist/internal/domain/draft"
	"github.com/xenking/florist/internal/domain/pricing"
	"github.com/xenking/florist/internal/domain/product"
	"github.com/xenking/florist/internal/domain/shipping"
	"github.com/xenking/florist/internal/domain/supplier"
)

var (
	// ErrNegativeCash is returned when the cash tendered is below zero.
	ErrNegativeCash = errors.New("cash tendered must not be negative")
	// ErrCashPrecision is returned when the cash tendered is finer than a cent.
	ErrCashPrecision = errors.New("cash tendered must have at most 2 decimal places")
)

// Catalog loads the reference data a purchase is priced against.
type Catalog interface {
	Load(ctx context.Context, q catalog.Query) (*catalog.Snapshot, error)
}

// Publisher announces recorded purchases to other systems.
type Publisher interface {
	PublishPurchaseRecorded(ctx context.Context, p *Purchase) error
}

// RecordRequest holds the input for quoting or recording a purchase.
type RecordRequest struct {
	SupplierID       string
	Items            []Item
	CouponCode       string
	ShippingMethodID string
	CashTendered     decimal.Decimal
	Note             string
}

// Quote is a priced but unsaved purchase.
type Quote struct {
	Items         []Item
	Breakdown     pricing.Breakdown
	PaymentStatus draft.PaymentStatus
}

// Service encapsulates supplier purchase pricing and recording.
type Service struct {
	catalog   Catalog
	suppliers supplier.Repository
	purchases Repository
	events    Publisher
	now       func() time.Time

	recorded metric.Int64Counter
}

// NewService creates a purchase Service.
func NewService(
	c Catalog,
	suppliers supplier.Repository,
	purchases Repository,
	events Publisher,
	meter metric.Meter,
) (*Service, error) {
	recorded, err := meter.Int64Counter("florist.purchases.recorded",
		metric.WithDescription("Number of recorded supplier purchases"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "purchases recorded counter")
	}
	return &Service{
		catalog:   c,
		suppliers: suppliers,
		purchases: purchases,
		events:    events,
		now:       time.Now,
		recorded:  recorded,
	}, nil
}

// Quote prices the request with the supplier's unit prices and projects the
// balance left after the cash tendered.
func (s *Service) Quote(ctx context.Context, req RecordRequest) (*Quote, error) {
	lines := make([]pricing.LineItem, len(req.Items))
	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		lines[i] = pricing.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
		ids[i] = item.ProductID
	}
	if err := draft.ValidateItems(lines); err != nil {
		return nil, err
	}
	if req.CashTendered.IsNegative() {
		return nil, ErrNegativeCash
	}
	if !draft.IsCents(req.CashTendered) {
		return nil, ErrCashPrecision
	}

	snap, err := s.catalog.Load(ctx, catalog.Query{
		ProductIDs: ids,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	for _, id := range ids {
		if _, ok := snap.Product(id); !ok {
			return nil, &product.NotFoundError{ProductID: id}
		}
	}
	if req.ShippingMethodID != "" {
		if _, ok := shipping.Find(snap.ShippingMethods, req.ShippingMethodID); !ok {
			return nil, errors.Wrapf(shipping.ErrUnknownMethod, "%q", req.ShippingMethodID)
		}
	}

	d := draft.New(draft.KindPurchase, snap.ShippingMethods)
	for _, l := range lines {
		d.AddItem(l)
	}
	d.SelectCoupon(snap.Coupon)
	d.SelectShipping(req.ShippingMethodID)
	d.SetCashTendered(req.CashTendered)

	b := d.Breakdown()
	return &Quote{
		Items:         req.Items,
		Breakdown:     b,
		PaymentStatus: draft.PaymentStatusOf(b),
	}, nil
}

// Record checks the supplier, prices the purchase, persists it and announces
// it. A failed announcement is logged and does not fail the purchase.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*Purchase, error) {
	if _, err := s.suppliers.GetByID(ctx, req.SupplierID); err != nil {
		return nil, errors.Wrapf(err, "get supplier %q", req.SupplierID)
	}

	q, err := s.Quote(ctx, req)
	if err != nil {
		return nil, err
	}

	b := q.Breakdown
	p := &Purchase{
		ID:               uuid.New().String(),
		SupplierID:       req.SupplierID,
		Items:            q.Items,
		Subtotal:         b.Subtotal,
		Discount:         b.Discount,
		ShippingCost:     b.ShippingCost,
		Total:            b.Total,
		CashTendered:     b.CashTendered,
		Balance:          b.Balance,
		CouponCode:       req.CouponCode,
		ShippingMethodID: req.ShippingMethodID,
		PaymentStatus:    q.PaymentStatus,
		Note:             req.Note,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.purchases.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create purchase")
	}

	lg := zctx.From(ctx).With(zap.String("purchase_id", p.ID))
	lg.Info("Purchase recorded",
		zap.String("supplier_id", p.SupplierID),
		zap.String("total", p.Total.StringFixed(2)),
		zap.String("balance", p.Balance.StringFixed(2)),
	)
	if err := s.events.PublishPurchaseRecorded(ctx, p); err != nil {
		lg.Warn("Publish purchase recorded", zap.Error(err))
	}

	s.recorded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_status", string(p.PaymentStatus)),
	))
	return p, nil
}

// GetPurchase returns a recorded purchase by id.
func (s *Service) GetPurchase(ctx context.Context, id string) (*Purchase, error) {
	p, err := s.purchases.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get purchase")
	}
	return p, nil
}
