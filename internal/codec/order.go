package codec

import (
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/florist/internal/domain/order"
	"github.com/xenking/florist/internal/domain/pricing"
	"github.com/xenking/florist/internal/domain/product"
	"github.com/xenking/florist/internal/domain/purchase"
)

// Breakdown writes the amounts of a pricing run. Cash fields are omitted
// unless cash was tendered.
func Breakdown(e *jx.Encoder, b pricing.Breakdown) {
	breakdown(e, b, !b.CashTendered.IsZero())
}

func breakdown(e *jx.Encoder, b pricing.Breakdown, cash bool) {
	e.ObjStart()
	e.FieldStart("subtotal")
	Decimal(e, b.Subtotal)
	e.FieldStart("discount")
	Decimal(e, b.Discount)
	e.FieldStart("shippingCost")
	Decimal(e, b.ShippingCost)
	e.FieldStart("total")
	Decimal(e, b.Total)
	if cash {
		e.FieldStart("cashTendered")
		Decimal(e, b.CashTendered)
		e.FieldStart("balance")
		Decimal(e, b.Balance)
	}
	e.ObjEnd()
}

func line(e *jx.Encoder, productID string, quantity int, unitPrice decimal.Decimal) {
	e.FieldStart("productId")
	e.Str(productID)
	e.FieldStart("quantity")
	e.Int(quantity)
	e.FieldStart("unitPrice")
	Decimal(e, unitPrice)
	e.FieldStart("lineTotal")
	Decimal(e, pricing.LineItem{Quantity: quantity, UnitPrice: unitPrice}.Subtotal())
}

func optStr(e *jx.Encoder, field, v string) {
	if v == "" {
		return
	}
	e.FieldStart(field)
	e.Str(v)
}

func orderItems(e *jx.Encoder, items []order.Item) {
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		line(e, it.ProductID, it.Quantity, it.UnitPrice)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// OrderQuote writes a priced, unsaved order.
func OrderQuote(e *jx.Encoder, q *order.Quote) {
	e.ObjStart()
	e.FieldStart("items")
	orderItems(e, q.Items)
	e.FieldStart("products")
	Products(e, q.Products)
	optStr(e, "couponCode", q.CouponCode)
	optStr(e, "shippingMethodId", q.ShippingMethodID)
	e.FieldStart("pricing")
	Breakdown(e, q.Breakdown)
	e.ObjEnd()
}

// Order writes a persisted order. Products are included when known.
func Order(e *jx.Encoder, o *order.Order, products []product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	optStr(e, "customerName", o.CustomerName)
	e.FieldStart("items")
	orderItems(e, o.Items)
	if len(products) > 0 {
		e.FieldStart("products")
		Products(e, products)
	}
	optStr(e, "couponCode", o.CouponCode)
	optStr(e, "shippingMethodId", o.ShippingMethodID)
	e.FieldStart("pricing")
	Breakdown(e, pricing.Breakdown{
		Subtotal:     o.Subtotal,
		Discount:     o.Discount,
		ShippingCost: o.ShippingCost,
		Total:        o.Total,
	})
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("paymentStatus")
	e.Str(string(o.PaymentStatus))
	e.FieldStart("createdAt")
	Time(e, o.CreatedAt)
	e.ObjEnd()
}

func purchaseItems(e *jx.Encoder, items []purchase.Item) {
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		line(e, it.ProductID, it.Quantity, it.UnitPrice)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// PurchaseQuote writes a priced, unsaved purchase.
func PurchaseQuote(e *jx.Encoder, q *purchase.Quote) {
	e.ObjStart()
	e.FieldStart("items")
	purchaseItems(e, q.Items)
	e.FieldStart("pricing")
	breakdown(e, q.Breakdown, true)
	e.FieldStart("paymentStatus")
	e.Str(string(q.PaymentStatus))
	e.ObjEnd()
}

// Purchase writes a recorded supplier purchase.
func Purchase(e *jx.Encoder, p *purchase.Purchase) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("supplierId")
	e.Str(p.SupplierID)
	e.FieldStart("items")
	purchaseItems(e, p.Items)
	optStr(e, "couponCode", p.CouponCode)
	optStr(e, "shippingMethodId", p.ShippingMethodID)
	e.FieldStart("pricing")
	breakdown(e, pricing.Breakdown{
		Subtotal:     p.Subtotal,
		Discount:     p.Discount,
		ShippingCost: p.ShippingCost,
		Total:        p.Total,
		CashTendered: p.CashTendered,
		Balance:      p.Balance,
	}, true)
	e.FieldStart("paymentStatus")
	e.Str(string(p.PaymentStatus))
	optStr(e, "note", p.Note)
	e.FieldStart("createdAt")
	Time(e, p.CreatedAt)
	e.ObjEnd()
}
