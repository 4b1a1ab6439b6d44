package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/florist/internal/domain/coupon"
	"github.com/xenking/florist/internal/domain/pricing"
	"github.com/xenking/florist/internal/domain/product"
)

type mockProductRepo struct {
	mu       sync.Mutex
	products []product.Product
	err      error
	gotIDs   []string
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return m.products, m.err
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	m.mu.Lock()
	m.gotIDs = ids
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []product.Product
	for _, p := range m.products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (m *mockProductRepo) Upsert(_ context.Context, _ product.Product) error { return nil }

type mockValidator struct {
	coupon *pricing.Coupon
	rules  []coupon.Rule
	err    error
	calls  int
}

func (m *mockValidator) Validate(_ context.Context, _ string) (*pricing.Coupon, error) {
	m.calls++
	return m.coupon, m.err
}

func (m *mockValidator) ListValid(_ context.Context) ([]coupon.Rule, error) {
	return m.rules, m.err
}

type mockShippingRepo struct {
	methods []pricing.ShippingMethod
	err     error
}

func (m *mockShippingRepo) List(_ context.Context) ([]pricing.ShippingMethod, error) {
	return m.methods, m.err
}

func (m *mockShippingRepo) Upsert(_ context.Context, _ pricing.ShippingMethod) error { return nil }

var (
	rose  = product.Product{ID: "rose", Name: "Red Rose", Price: decimal.RequireFromString("12.50")}
	tulip = product.Product{ID: "tulip", Name: "Tulip", Price: decimal.RequireFromString("4.00")}

	courier = pricing.ShippingMethod{ID: "courier", Name: "Courier", Cost: decimal.RequireFromString("7.00")}
)

func TestLoad(t *testing.T) {
	products := &mockProductRepo{products: []product.Product{rose, tulip}}
	coupons := &mockValidator{coupon: &pricing.Coupon{Code: "SPRING", DiscountType: pricing.DiscountPercentage, Value: decimal.NewFromInt(10)}}
	shipping := &mockShippingRepo{methods: []pricing.ShippingMethod{courier}}
	l := NewLoader(products, coupons, shipping)

	snap, err := l.Load(context.Background(), Query{
		ProductIDs: []string{"tulip", "rose", "tulip"},
		CouponCode: "SPRING",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"rose", "tulip"}, products.gotIDs)
	assert.Len(t, snap.Products, 2)
	p, ok := snap.Product("rose")
	require.True(t, ok)
	assert.Equal(t, "Red Rose", p.Name)
	_, ok = snap.Product("lily")
	assert.False(t, ok)

	require.NotNil(t, snap.Coupon)
	assert.Equal(t, "SPRING", snap.Coupon.Code)
	assert.Equal(t, []pricing.ShippingMethod{courier}, snap.ShippingMethods)
}

func TestLoad_SkipsEmptyInputs(t *testing.T) {
	products := &mockProductRepo{err: errors.New("must not be called")}
	coupons := &mockValidator{err: errors.New("must not be called")}
	l := NewLoader(products, coupons, &mockShippingRepo{})

	snap, err := l.Load(context.Background(), Query{})
	require.NoError(t, err)
	assert.Empty(t, snap.Products)
	assert.Nil(t, snap.Coupon)
	assert.Zero(t, coupons.calls)
}

func TestLoad_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		products *mockProductRepo
		coupons  *mockValidator
		shipping *mockShippingRepo
		wantErr  error
		wantMsg  string
	}{
		{
			name:     "products",
			products: &mockProductRepo{err: boom},
			coupons:  &mockValidator{},
			shipping: &mockShippingRepo{},
			wantErr:  boom,
			wantMsg:  "get products",
		},
		{
			name:     "coupon",
			products: &mockProductRepo{},
			coupons:  &mockValidator{err: coupon.ErrInvalidCoupon},
			shipping: &mockShippingRepo{},
			wantErr:  coupon.ErrInvalidCoupon,
			wantMsg:  "validate coupon",
		},
		{
			name:     "shipping",
			products: &mockProductRepo{},
			coupons:  &mockValidator{},
			shipping: &mockShippingRepo{err: boom},
			wantErr:  boom,
			wantMsg:  "list shipping methods",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader(tt.products, tt.coupons, tt.shipping)
			_, err := l.Load(context.Background(), Query{ProductIDs: []string{"rose"}, CouponCode: "X"})
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoader_ShippingMethodsAndCoupons(t *testing.T) {
	rules := []coupon.Rule{{Code: "SPRING", DiscountType: pricing.DiscountFixed, Active: true}}
	l := NewLoader(&mockProductRepo{}, &mockValidator{rules: rules}, &mockShippingRepo{methods: []pricing.ShippingMethod{courier}})

	methods, err := l.ShippingMethods(context.Background())
	require.NoError(t, err)
	assert.Len(t, methods, 1)

	got, err := l.Coupons(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rules, got)
}
