package pubsub

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"

	"github.com/DingWH03/uchat-sub000/internal/domain/event"
)

// Exporter publishes persisted-message events to an external broker.
// Delivery is best-effort: the pipeline logs a failed export and moves on.
type Exporter interface {
	Publish(ctx context.Context, ev event.Eventer) error
	Enabled() bool
	Close() error
}

type amqpExporter struct {
	dispatcher EventDispatcher
	publisher  *amqp.Publisher
}

// NewAMQPExporter declares a durable topic exchange and publishes events
// with their routing key as the topic.
func NewAMQPExporter(url, exchange string, wmLogger watermill.LoggerAdapter) (Exporter, error) {
	cfg := amqp.NewDurablePubSubConfig(url, nil)
	cfg.Exchange.GenerateName = func(string) string { return exchange }
	cfg.Exchange.Type = "topic"
	cfg.Publish.GenerateRoutingKey = func(topic string) string { return topic }

	publisher, err := amqp.NewPublisher(cfg, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("pubsub: amqp publisher: %w", err)
	}

	return &amqpExporter{
		dispatcher: NewEventDispatcher(publisher),
		publisher:  publisher,
	}, nil
}

func (e *amqpExporter) Publish(ctx context.Context, ev event.Eventer) error {
	return e.dispatcher.Publish(ctx, ev)
}

func (e *amqpExporter) Enabled() bool { return true }

func (e *amqpExporter) Close() error { return e.publisher.Close() }

// disabledExporter is used when no AMQP url is configured.
type disabledExporter struct{}

func NewDisabledExporter() Exporter { return disabledExporter{} }

func (disabledExporter) Publish(context.Context, event.Eventer) error { return nil }
func (disabledExporter) Enabled() bool                                { return false }
func (disabledExporter) Close() error                                 { return nil }
