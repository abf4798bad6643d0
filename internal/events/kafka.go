package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/cartloom/checkout/internal/domain/order"
)

var _ order.Publisher = (*KafkaPublisher)(nil)

// KafkaPublisher writes order events to a Kafka topic keyed by order ID so
// all events of one order land in the same partition. The writer runs
// async: WriteMessages never blocks the checkout path, and delivery errors
// are reported to the completion callback and logged.
type KafkaPublisher struct {
	w  *kafka.Writer
	lg *zap.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, lg *zap.Logger) *KafkaPublisher {
	p := &KafkaPublisher{lg: lg}
	p.w = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				lg.Warn("order event delivery failed",
					zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}
	return p
}

// Close flushes buffered messages and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func (p *KafkaPublisher) OrderCreated(ctx context.Context, o *order.Order) {
	p.publish(ctx, TypeOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount.String(),
		ItemCount:   len(o.Items),
	})
}

func (p *KafkaPublisher) OrderStatusChanged(ctx context.Context, o *order.Order, from, to order.Status) {
	p.publish(ctx, TypeOrderStatusChanged, o.ID, StatusChangedPayload{
		OrderID: o.ID,
		From:    string(from),
		To:      string(to),
	})
}

func (p *KafkaPublisher) OrderCancelled(ctx context.Context, o *order.Order, reason string) {
	p.publish(ctx, TypeOrderCancelled, o.ID, CancelledPayload{
		OrderID: o.ID,
		Reason:  reason,
	})
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType, orderID string, payload any) {
	env, err := newEnvelope(eventType, orderID, payload)
	if err != nil {
		p.lg.Warn("encode order event", zap.String("type", eventType), zap.Error(err))
		return
	}
	value, err := json.Marshal(env)
	if err != nil {
		p.lg.Warn("encode order event", zap.String("type", eventType), zap.Error(err))
		return
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(orderID),
		Value: value,
	})
	if err != nil {
		p.lg.Warn("publish order event",
			zap.String("type", eventType), zap.String("order_id", orderID), zap.Error(err))
	}
}
