package events

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/rotisserie/eris"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "compliance.records.fetched"

// KafkaSink publishes events to a Kafka topic, keyed by cache key so that
// updates for one query land on one partition.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaSink connects a synchronous producer to brokers.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, eris.New("events: no kafka brokers configured")
	}
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Compression = sarama.CompressionSnappy

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "events: create sync producer")
	}
	return NewKafkaSinkWithProducer(prod, topic), nil
}

// NewKafkaSinkWithProducer wraps an existing producer.
func NewKafkaSinkWithProducer(p sarama.SyncProducer, topic string) *KafkaSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaSink{producer: p, topic: topic}
}

// Publish sends ev and waits for the broker acknowledgement.
func (k *KafkaSink) Publish(ctx context.Context, ev RecordsFetched) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "events: publish")
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "events: marshal event")
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.CacheKey),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(ev.Kind)},
			{Key: []byte("event_id"), Value: []byte(ev.ID.String())},
		},
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return eris.Wrapf(err, "events: send to %s", k.topic)
	}
	return nil
}

// Close flushes and closes the producer.
func (k *KafkaSink) Close() error {
	if err := k.producer.Close(); err != nil {
		return eris.Wrap(err, "events: close producer")
	}
	return nil
}
