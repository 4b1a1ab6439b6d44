package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-faster/errors"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/florist/internal/domain/coupon"
	"github.com/xenking/florist/internal/domain/pricing"
)

type mockShippingRepo struct {
	methods []pricing.ShippingMethod
	err     error
	lists   int
	upserts int
}

func (m *mockShippingRepo) List(context.Context) ([]pricing.ShippingMethod, error) {
	m.lists++
	return m.methods, m.err
}

func (m *mockShippingRepo) Upsert(context.Context, pricing.ShippingMethod) error {
	m.upserts++
	return m.err
}

type mockCouponRepo struct {
	rules map[string]coupon.Rule
	finds int
	lists int
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*coupon.Rule, error) {
	m.finds++
	r, ok := m.rules[code]
	if !ok {
		return nil, coupon.ErrInvalidCoupon
	}
	return &r, nil
}

func (m *mockCouponRepo) ListActive(context.Context) ([]coupon.Rule, error) {
	m.lists++
	rules := make([]coupon.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		rules = append(rules, r)
	}
	return rules, nil
}

func (m *mockCouponRepo) Upsert(_ context.Context, r coupon.Rule) error {
	m.rules[r.Code] = r
	return nil
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl), mr
}

func testMethods() []pricing.ShippingMethod {
	return []pricing.ShippingMethod{
		{ID: "pickup", Name: "Store pickup", Cost: decimal.Zero, EstimatedDelivery: "same day"},
		{ID: "courier", Name: "Courier", Cost: decimal.NewFromInt(15000), EstimatedDelivery: "1-2 days"},
	}
}

func TestShippingRepository_List(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	next := &mockShippingRepo{methods: testMethods()}
	repo := NewShippingRepository(next, c)

	first, err := repo.List(ctx)
	require.NoError(t, err)
	second, err := repo.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, next.lists)
	require.Len(t, second, len(first))
	assert.Equal(t, "courier", second[1].ID)
	assert.True(t, decimal.NewFromInt(15000).Equal(second[1].Cost))
	assert.True(t, mr.Exists(KeyPrefix+keyShipping))
	assert.Equal(t, time.Minute, mr.TTL(KeyPrefix+keyShipping))
}

func TestShippingRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	next := &mockShippingRepo{methods: testMethods()}
	repo := NewShippingRepository(next, c)

	_, err := repo.List(ctx)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = repo.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, next.lists)
}

func TestShippingRepository_UpsertInvalidates(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	next := &mockShippingRepo{methods: testMethods()}
	repo := NewShippingRepository(next, c)

	_, err := repo.List(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, pricing.ShippingMethod{ID: "express"}))

	assert.False(t, mr.Exists(KeyPrefix+keyShipping))
	_, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next.lists)
}

func TestShippingRepository_ErrorNotCached(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	next := &mockShippingRepo{err: errors.New("db down")}
	repo := NewShippingRepository(next, c)

	_, err := repo.List(ctx)
	require.Error(t, err)
	assert.False(t, mr.Exists(KeyPrefix+keyShipping))
}

func TestShippingRepository_RedisDown(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	next := &mockShippingRepo{methods: testMethods()}
	repo := NewShippingRepository(next, c)

	mr.Close()
	methods, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, methods, 2)
	assert.Equal(t, 1, next.lists)
}

func TestShippingRepository_Disabled(t *testing.T) {
	ctx := context.Background()
	next := &mockShippingRepo{methods: testMethods()}
	repo := NewShippingRepository(next, New(nil, time.Minute))

	for range 3 {
		_, err := repo.List(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, next.lists)
	require.NoError(t, repo.Upsert(ctx, pricing.ShippingMethod{ID: "express"}))
}

func TestShippingRepository_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	next := &mockShippingRepo{methods: testMethods()}
	repo := NewShippingRepository(next, c)

	require.NoError(t, mr.Set(KeyPrefix+keyShipping, "{not json"))
	methods, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, methods, 2)
	assert.Equal(t, 1, next.lists)
}

func TestCouponRepository_FindByCode(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	until := time.Date(2026, 5, 10, 23, 59, 59, 0, time.UTC)
	next := &mockCouponRepo{rules: map[string]coupon.Rule{
		"MOTHERSDAY": {
			Code:         "MOTHERSDAY",
			DiscountType: pricing.DiscountPercentage,
			Value:        decimal.NewFromInt(15),
			Active:       true,
			ValidUntil:   &until,
		},
	}}
	repo := NewCouponRepository(next, c)

	_, err := repo.FindByCode(ctx, "MOTHERSDAY")
	require.NoError(t, err)
	rule, err := repo.FindByCode(ctx, "mothersday")
	require.NoError(t, err)

	assert.Equal(t, 1, next.finds)
	assert.Equal(t, "MOTHERSDAY", rule.Code)
	assert.True(t, rule.Active)
	require.NotNil(t, rule.ValidUntil)
	assert.True(t, until.Equal(*rule.ValidUntil))
	assert.True(t, mr.Exists(KeyPrefix+"coupon:MOTHERSDAY"))
}

func TestCouponRepository_UnknownNotCached(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)
	next := &mockCouponRepo{rules: map[string]coupon.Rule{}}
	repo := NewCouponRepository(next, c)

	for range 2 {
		_, err := repo.FindByCode(ctx, "NOPE")
		require.ErrorIs(t, err, coupon.ErrInvalidCoupon)
	}
	assert.Equal(t, 2, next.finds)
}

func TestCouponRepository_UpsertInvalidates(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	next := &mockCouponRepo{rules: map[string]coupon.Rule{
		"TEN": {Code: "TEN", DiscountType: pricing.DiscountPercentage, Value: decimal.NewFromInt(10), Active: true},
	}}
	repo := NewCouponRepository(next, c)

	_, err := repo.FindByCode(ctx, "TEN")
	require.NoError(t, err)
	rules, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	require.NoError(t, repo.Upsert(ctx, coupon.Rule{Code: "TEN", DiscountType: pricing.DiscountPercentage, Value: decimal.NewFromInt(20)}))
	assert.False(t, mr.Exists(KeyPrefix+"coupon:TEN"))
	assert.False(t, mr.Exists(KeyPrefix+keyCoupons))

	rule, err := repo.FindByCode(ctx, "TEN")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(rule.Value))
	assert.False(t, rule.Active)
	assert.Equal(t, 2, next.finds)
}

func TestCache_InvalidateCatalog(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	for _, k := range []string{keyShipping, keyCoupons, "coupon:TEN", "coupon:KEEP"} {
		require.NoError(t, mr.Set(KeyPrefix+k, "[]"))
	}

	require.NoError(t, c.InvalidateCatalog(ctx, "ten"))

	assert.False(t, mr.Exists(KeyPrefix+keyShipping))
	assert.False(t, mr.Exists(KeyPrefix+keyCoupons))
	assert.False(t, mr.Exists(KeyPrefix+"coupon:TEN"))
	assert.True(t, mr.Exists(KeyPrefix+"coupon:KEEP"))

	var disabled *Cache
	assert.NoError(t, disabled.InvalidateCatalog(ctx))
}
