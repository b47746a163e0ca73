package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/akylbek/payment-system/pix-payments/internal/models"
)

const (
	TopicStateChanged = "pix.payment.state.changed"

	// Transitions publish inline with the request, so batches flush quickly.
	writerBatchTimeout = 10 * time.Millisecond
)

// NewWriter returns a writer for the state-change topic. brokers is a comma
// separated list.
func NewWriter(brokers string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        TopicStateChanged,
		Balancer:     &kafka.Hash{},
		BatchTimeout: writerBatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
}

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes one message per transition, keyed by order id so all
// events of an order land on the same partition in order.
type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) PublishStateChange(ctx context.Context, event models.StateChangeEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
			{Key: "state", Value: []byte(event.State)},
		},
	})
}
