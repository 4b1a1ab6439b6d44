package event

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/florist/internal/domain/draft"
	"github.com/xenking/florist/internal/domain/order"
	"github.com/xenking/florist/internal/domain/purchase"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var fixedNow = time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)

func newTestPublisher(w Writer) *Publisher {
	p := NewPublisher(w, "florist.orders", "florist.purchases")
	p.now = func() time.Time { return fixedNow }
	p.newID = func() string { return "evt-1" }
	return p
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// envelope splits a message value into its metadata and raw data.
func envelope(t *testing.T, value []byte) (map[string]string, string) {
	t.Helper()
	meta := map[string]string{}
	var data string
	err := jx.DecodeBytes(value).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "data":
			raw, err := d.Raw()
			data = raw.String()
			return err
		case "version":
			n, err := d.Num()
			meta[key] = n.String()
			return err
		default:
			s, err := d.Str()
			meta[key] = s
			return err
		}
	})
	require.NoError(t, err)
	return meta, data
}

func TestPublishOrderPlaced(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w)

	o := &order.Order{
		ID:            "ord-1",
		Items:         []order.Item{{ProductID: "rose", Quantity: 2, UnitPrice: decimal.NewFromInt(10000)}},
		Subtotal:      decimal.NewFromInt(20000),
		Total:         decimal.NewFromInt(20000),
		Status:        order.StatusPending,
		PaymentStatus: draft.PaymentUnpaid,
		CreatedAt:     fixedNow,
	}
	require.NoError(t, p.PublishOrderPlaced(context.Background(), o))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "florist.orders", msg.Topic)
	assert.Equal(t, "ord-1", string(msg.Key))
	assert.Equal(t, TypeOrderPlaced, header(msg, "event_type"))
	assert.Equal(t, "florist-api", header(msg, "source"))

	meta, data := envelope(t, msg.Value)
	assert.Equal(t, map[string]string{
		"event_id":       "evt-1",
		"event_type":     "order.placed",
		"aggregate_id":   "ord-1",
		"aggregate_type": "order",
		"version":        "1",
		"timestamp":      "2026-03-08T09:00:00Z",
		"source":         "florist-api",
	}, meta)
	assert.JSONEq(t, `{
		"id": "ord-1",
		"items": [{"productId": "rose", "quantity": 2, "unitPrice": 10000, "lineTotal": 20000}],
		"pricing": {"subtotal": 20000, "discount": 0, "shippingCost": 0, "total": 20000},
		"status": "pending",
		"paymentStatus": "unpaid",
		"createdAt": "2026-03-08T09:00:00Z"
	}`, data)
}

func TestPublishPurchaseRecorded(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w)

	pu := &purchase.Purchase{
		ID:            "pur-1",
		SupplierID:    "sup-1",
		Total:         decimal.NewFromInt(50000),
		CashTendered:  decimal.NewFromInt(50000),
		PaymentStatus: draft.PaymentPaid,
		CreatedAt:     fixedNow,
	}
	require.NoError(t, p.PublishPurchaseRecorded(context.Background(), pu))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "florist.purchases", msg.Topic)
	assert.Equal(t, "pur-1", string(msg.Key))
	assert.Equal(t, TypePurchaseRecorded, header(msg, "event_type"))

	meta, _ := envelope(t, msg.Value)
	assert.Equal(t, "purchase", meta["aggregate_type"])
}

func TestPublish_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newTestPublisher(w)

	err := p.PublishOrderPlaced(context.Background(), &order.Order{ID: "ord-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish order.placed to florist.orders")
	assert.Contains(t, err.Error(), "leader not available")
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newTestPublisher(w).Close())
	assert.True(t, w.closed)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Noop{}.PublishOrderPlaced(ctx, &order.Order{}))
	assert.NoError(t, Noop{}.PublishPurchaseRecorded(ctx, &purchase.Purchase{}))
}
