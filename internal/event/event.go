// Package event publishes domain events to Kafka.
package event

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/florist/internal/codec"
	"github.com/xenking/florist/internal/domain/order"
	"github.com/xenking/florist/internal/domain/purchase"
)

// Event types.
const (
	TypeOrderPlaced      = "order.placed"
	TypePurchaseRecorded = "purchase.recorded"
)

const (
	source                = "florist-api"
	envelopeVersion       = 1
	aggregateTypeOrder    = "order"
	aggregateTypePurchase = "purchase"
)

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter creates a kafka writer for brokers. Topics are set per message.
// Messages with the same key land on the same partition.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
}

// Publisher writes order and purchase events.
type Publisher struct {
	w             Writer
	orderTopic    string
	purchaseTopic string
	now           func() time.Time
	newID         func() string
}

var (
	_ order.Publisher    = (*Publisher)(nil)
	_ purchase.Publisher = (*Publisher)(nil)
)

// NewPublisher creates a Publisher writing to the given topics.
func NewPublisher(w Writer, orderTopic, purchaseTopic string) *Publisher {
	return &Publisher{
		w:             w,
		orderTopic:    orderTopic,
		purchaseTopic: purchaseTopic,
		now:           time.Now,
		newID:         func() string { return uuid.New().String() },
	}
}

// PublishOrderPlaced announces a newly placed order.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, o *order.Order) error {
	return p.publish(ctx, p.orderTopic, TypeOrderPlaced, aggregateTypeOrder, o.ID, func(e *jx.Encoder) {
		codec.Order(e, o, nil)
	})
}

// PublishPurchaseRecorded announces a newly recorded supplier purchase.
func (p *Publisher) PublishPurchaseRecorded(ctx context.Context, pu *purchase.Purchase) error {
	return p.publish(ctx, p.purchaseTopic, TypePurchaseRecorded, aggregateTypePurchase, pu.ID, func(e *jx.Encoder) {
		codec.Purchase(e, pu)
	})
}

func (p *Publisher) publish(
	ctx context.Context,
	topic, eventType, aggregateType, aggregateID string,
	data func(e *jx.Encoder),
) error {
	eventID := p.newID()
	value := codec.Marshal(func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("event_id")
		e.Str(eventID)
		e.FieldStart("event_type")
		e.Str(eventType)
		e.FieldStart("aggregate_id")
		e.Str(aggregateID)
		e.FieldStart("aggregate_type")
		e.Str(aggregateType)
		e.FieldStart("version")
		e.Int(envelopeVersion)
		e.FieldStart("timestamp")
		codec.Time(e, p.now())
		e.FieldStart("source")
		e.Str(source)
		e.FieldStart("data")
		data(e)
		e.ObjEnd()
	})

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(aggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "source", Value: []byte(source)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish %s to %s", eventType, topic)
	}

	zctx.From(ctx).Debug("Event published",
		zap.String("topic", topic),
		zap.String("event_type", eventType),
		zap.String("event_id", eventID),
		zap.String("aggregate_id", aggregateID),
	)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// Noop drops every event. It is used when no brokers are configured.
type Noop struct{}

var (
	_ order.Publisher    = Noop{}
	_ purchase.Publisher = Noop{}
)

// PublishOrderPlaced implements order.Publisher.
func (Noop) PublishOrderPlaced(context.Context, *order.Order) error { return nil }

// PublishPurchaseRecorded implements purchase.Publisher.
func (Noop) PublishPurchaseRecorded(context.Context, *purchase.Purchase) error { return nil }
