package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/florist/internal/domain/draft"
	"github.com/xenking/florist/internal/domain/purchase"
)

func samplePurchase() *purchase.Purchase {
	return &purchase.Purchase{
		ID:            "pur-001",
		SupplierID:    "sup-1",
		Subtotal:      decimal.RequireFromString("80000"),
		Discount:      decimal.Zero,
		ShippingCost:  decimal.Zero,
		Total:         decimal.RequireFromString("80000"),
		CashTendered:  decimal.RequireFromString("50000"),
		Balance:       decimal.RequireFromString("30000"),
		PaymentStatus: draft.PaymentPartial,
		Note:          "weekly restock",
		CreatedAt:     time.Date(2026, 5, 1, 6, 30, 0, 0, time.UTC),
		Items: []purchase.Item{
			{ProductID: "rose", Quantity: 8, UnitPrice: decimal.RequireFromString("10000")},
		},
	}
}

func TestPurchaseRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPurchaseRepository(mock)
	p := samplePurchase()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO purchases").
		WithArgs(
			p.ID, p.SupplierID, p.Subtotal, p.Discount, p.ShippingCost, p.Total,
			p.CashTendered, p.Balance, p.CouponCode, p.ShippingMethodID,
			"partial", p.Note, p.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO purchase_items").
		WithArgs(p.ID, 1, "rose", 8, p.Items[0].UnitPrice).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepository_GetByID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPurchaseRepository(mock)
	want := samplePurchase()

	mock.ExpectQuery("FROM purchases WHERE id").
		WithArgs(want.ID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "supplier_id", "subtotal", "discount", "shipping_cost", "total",
			"cash_tendered", "balance", "coupon_code", "shipping_method_id",
			"payment_status", "note", "created_at",
		}).AddRow(
			want.ID, want.SupplierID, want.Subtotal, want.Discount, want.ShippingCost, want.Total,
			want.CashTendered, want.Balance, "", "",
			"partial", want.Note, want.CreatedAt,
		))
	mock.ExpectQuery("FROM purchase_items WHERE purchase_id").
		WithArgs(want.ID).
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "quantity", "unit_price"}).
			AddRow("rose", 8, want.Items[0].UnitPrice))

	got, err := repo.GetByID(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepository_GetByID_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPurchaseRepository(mock)

	mock.ExpectQuery("FROM purchases WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, purchase.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
