package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/florist/internal/domain/catalog"
	"github.com/xenking/florist/internal/domain/coupon"
	"github.com/xenking/florist/internal/domain/draft"
	"github.com/xenking/florist/internal/domain/pricing"
	"github.com/xenking/florist/internal/domain/product"
	"github.com/xenking/florist/internal/domain/shipping"
)

// --- Mock implementations ---

type mockCatalog struct {
	snap     *catalog.Snapshot
	err      error
	gotQuery catalog.Query
}

func (m *mockCatalog) Load(_ context.Context, q catalog.Query) (*catalog.Snapshot, error) {
	m.gotQuery = q
	if m.err != nil {
		return nil, m.err
	}
	return m.snap, nil
}

type mockOrderRepo struct {
	lastOrder *Order
	err       error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.lastOrder = o
	return m.err
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	if m.lastOrder == nil || m.lastOrder.ID != id {
		return nil, ErrNotFound
	}
	return m.lastOrder, nil
}

type mockPublisher struct {
	published []*Order
	err       error
}

func (m *mockPublisher) PublishOrderPlaced(_ context.Context, o *Order) error {
	m.published = append(m.published, o)
	return m.err
}

// --- Helpers ---

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newSnapshot(c *pricing.Coupon, products ...product.Product) *catalog.Snapshot {
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &catalog.Snapshot{
		Products: byID,
		Coupon:   c,
		ShippingMethods: []pricing.ShippingMethod{
			{ID: "courier", Name: "Courier", Cost: dec("5000")},
			{ID: "pickup", Name: "Pickup", Cost: dec("0")},
		},
	}
}

var (
	rose    = product.Product{ID: "rose", Name: "Red Rose", Price: dec("10000"), Category: "stem"}
	bouquet = product.Product{ID: "bouquet", Name: "Spring Bouquet", Price: dec("25000"), Category: "arrangement"}
)

func newTestService(t *testing.T, c *mockCatalog, repo *mockOrderRepo, pub *mockPublisher) *Service {
	t.Helper()
	svc, err := NewService(c, repo, pub, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC) }
	return svc
}

// --- Tests ---

func TestQuote_Validation(t *testing.T) {
	tests := []struct {
		name  string
		cat   *mockCatalog
		req   PlaceOrderRequest
		check func(t *testing.T, err error)
	}{
		{
			name: "empty items",
			cat:  &mockCatalog{snap: newSnapshot(nil)},
			req:  PlaceOrderRequest{},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, draft.ErrEmptyItems)
			},
		},
		{
			name: "zero quantity",
			cat:  &mockCatalog{snap: newSnapshot(nil, rose)},
			req:  PlaceOrderRequest{Items: []ItemRequest{{ProductID: "rose", Quantity: 0}}},
			check: func(t *testing.T, err error) {
				var qErr *draft.InvalidQuantityError
				require.ErrorAs(t, err, &qErr)
				assert.Equal(t, "rose", qErr.ProductID)
			},
		},
		{
			name: "unknown product",
			cat:  &mockCatalog{snap: newSnapshot(nil, rose)},
			req:  PlaceOrderRequest{Items: []ItemRequest{{ProductID: "lily", Quantity: 1}}},
			check: func(t *testing.T, err error) {
				var nfErr *product.NotFoundError
				require.ErrorAs(t, err, &nfErr)
				assert.Equal(t, "lily", nfErr.ProductID)
				assert.ErrorIs(t, err, product.ErrNotFound)
			},
		},
		{
			name: "unknown shipping method",
			cat:  &mockCatalog{snap: newSnapshot(nil, rose)},
			req: PlaceOrderRequest{
				Items:            []ItemRequest{{ProductID: "rose", Quantity: 1}},
				ShippingMethodID: "drone",
			},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, shipping.ErrUnknownMethod)
			},
		},
		{
			name: "invalid coupon",
			cat:  &mockCatalog{err: errors.Wrap(coupon.ErrInvalidCoupon, "validate coupon")},
			req: PlaceOrderRequest{
				Items:      []ItemRequest{{ProductID: "rose", Quantity: 1}},
				CouponCode: "BOGUS",
			},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, coupon.ErrInvalidCoupon)
			},
		},
		{
			name: "negative catalog price",
			cat:  &mockCatalog{snap: newSnapshot(nil, product.Product{ID: "broken", Price: dec("-1")})},
			req:  PlaceOrderRequest{Items: []ItemRequest{{ProductID: "broken", Quantity: 1}}},
			check: func(t *testing.T, err error) {
				var pErr *draft.InvalidPriceError
				require.ErrorAs(t, err, &pErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.cat, &mockOrderRepo{}, &mockPublisher{})
			_, err := svc.Quote(context.Background(), tt.req)
			tt.check(t, err)
		})
	}
}

func TestQuote_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		coupon   *pricing.Coupon
		items    []ItemRequest
		shipping string
		want     pricing.Breakdown
	}{
		{
			name:  "no coupon no shipping",
			items: []ItemRequest{{ProductID: "rose", Quantity: 2}, {ProductID: "bouquet", Quantity: 1}},
			want: pricing.Breakdown{
				Subtotal: dec("45000"), Discount: dec("0"), ShippingCost: dec("0"), Total: dec("45000"),
				CashTendered: dec("0"), Balance: dec("0"),
			},
		},
		{
			name:     "percentage coupon with courier",
			coupon:   &pricing.Coupon{Code: "TEN", DiscountType: pricing.DiscountPercentage, Value: dec("10")},
			items:    []ItemRequest{{ProductID: "rose", Quantity: 2}, {ProductID: "bouquet", Quantity: 1}},
			shipping: "courier",
			want: pricing.Breakdown{
				Subtotal: dec("45000"), Discount: dec("4500"), ShippingCost: dec("5000"), Total: dec("45500"),
				CashTendered: dec("0"), Balance: dec("0"),
			},
		},
		{
			name:     "fixed coupon capped at subtotal",
			coupon:   &pricing.Coupon{Code: "BIG", DiscountType: pricing.DiscountFixed, Value: dec("99999")},
			items:    []ItemRequest{{ProductID: "rose", Quantity: 1}},
			shipping: "courier",
			want: pricing.Breakdown{
				Subtotal: dec("10000"), Discount: dec("10000"), ShippingCost: dec("5000"), Total: dec("5000"),
				CashTendered: dec("0"), Balance: dec("0"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := &mockCatalog{snap: newSnapshot(tt.coupon, rose, bouquet)}
			repo := &mockOrderRepo{}
			svc := newTestService(t, cat, repo, &mockPublisher{})

			code := ""
			if tt.coupon != nil {
				code = tt.coupon.Code
			}
			q, err := svc.Quote(context.Background(), PlaceOrderRequest{
				Items:            tt.items,
				CouponCode:       code,
				ShippingMethodID: tt.shipping,
			})
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(q.Breakdown), "want %+v, got %+v", tt.want, q.Breakdown)
			assert.Len(t, q.Items, len(tt.items))
			assert.Equal(t, code, cat.gotQuery.CouponCode)
			assert.Nil(t, repo.lastOrder, "quote must not persist")
		})
	}
}

func TestPlaceOrder(t *testing.T) {
	c := &pricing.Coupon{Code: "TEN", DiscountType: pricing.DiscountPercentage, Value: dec("10")}
	repo := &mockOrderRepo{}
	pub := &mockPublisher{}
	svc := newTestService(t, &mockCatalog{snap: newSnapshot(c, rose, bouquet)}, repo, pub)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerName:     "Alya",
		Items:            []ItemRequest{{ProductID: "rose", Quantity: 3}},
		CouponCode:       "TEN",
		ShippingMethodID: "courier",
	})
	require.NoError(t, err)

	o := result.Order
	require.NotNil(t, repo.lastOrder)
	assert.Equal(t, o, repo.lastOrder)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "Alya", o.CustomerName)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, draft.PaymentUnpaid, o.PaymentStatus)
	assert.Equal(t, "courier", o.ShippingMethodID)
	assert.True(t, dec("30000").Equal(o.Subtotal))
	assert.True(t, dec("3000").Equal(o.Discount))
	assert.True(t, dec("5000").Equal(o.ShippingCost))
	assert.True(t, dec("32000").Equal(o.Total))
	assert.Equal(t, time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC), o.CreatedAt)
	require.Len(t, o.Items, 1)
	assert.True(t, dec("10000").Equal(o.Items[0].UnitPrice))
	assert.Len(t, result.Products, 1)

	require.Len(t, pub.published, 1)
	assert.Equal(t, o.ID, pub.published[0].ID)

	got, err := svc.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o, got)
}

func TestPlaceOrder_CreateError(t *testing.T) {
	pub := &mockPublisher{}
	svc := newTestService(t,
		&mockCatalog{snap: newSnapshot(nil, rose)},
		&mockOrderRepo{err: errors.New("db write failed")},
		pub,
	)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "rose", Quantity: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
	assert.Empty(t, pub.published)
}

func TestPlaceOrder_PublishErrorIsNotFatal(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := newTestService(t,
		&mockCatalog{snap: newSnapshot(nil, rose)},
		repo,
		&mockPublisher{err: errors.New("broker down")},
	)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "rose", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, repo.lastOrder.ID, result.Order.ID)
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := newTestService(t, &mockCatalog{}, &mockOrderRepo{}, &mockPublisher{})

	_, err := svc.GetOrder(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
