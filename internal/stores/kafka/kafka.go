package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"storefront/internal/orders"
	"storefront/pkg/logkey"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Conf is a producer for storefront events.
type Conf struct {
	client *kgo.Client
}

func NewConf(brokers []string, opts ...kgo.Opt) (*Conf, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	all := append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	}, opts...)
	client, err := kgo.NewClient(all...)
	if err != nil {
		return nil, fmt.Errorf("creating kafka client: %w", err)
	}
	return &Conf{client: client}, nil
}

// Ping checks that at least one broker answers.
func (c *Conf) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

// ProduceMessage writes one record and waits for the broker to ack it.
func (c *Conf) ProduceMessage(ctx context.Context, topic string, key, value []byte) error {
	rec := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := c.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("producing to %s: %w", topic, err)
	}
	return nil
}

func (c *Conf) PublishOrderPlaced(ctx context.Context, o orders.Order) error {
	jsonData, err := json.Marshal(NewOrderPlacedEvent(o))
	if err != nil {
		return fmt.Errorf("marshalling order event: %w", err)
	}
	key := []byte(strconv.FormatInt(o.ID, 10))
	if err := c.ProduceMessage(ctx, TopicOrderPlaced, key, jsonData); err != nil {
		return err
	}
	slog.Info("order event produced", slog.Int64(logkey.OrderID, o.ID), slog.String("Topic", TopicOrderPlaced))
	return nil
}

func (c *Conf) PublishOrderPaid(ctx context.Context, o orders.Order) error {
	jsonData, err := json.Marshal(OrderPaidEvent{
		OrderID:          o.ID,
		PaymentReference: o.PaymentReference,
		Total:            o.Total.StringFixed(2),
		PaidAt:           time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshalling order event: %w", err)
	}
	key := []byte(strconv.FormatInt(o.ID, 10))
	return c.ProduceMessage(ctx, TopicOrderPaid, key, jsonData)
}

func (c *Conf) Close() {
	c.client.Close()
}
