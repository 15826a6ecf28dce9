package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Producer wraps kafka-go Writer for outcome notifications. The topic is
// chosen per message, so one producer serves every response topic.
type Producer struct {
	writer *kafkago.Writer
}

type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	Compression  kafkago.Compression
	RequiredAcks kafkago.RequiredAcks
	MaxAttempts  int
}

// NewProducer constructs a Producer from the given configuration.
func NewProducer(cfg ProducerConfig) *Producer {
	return &Producer{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Balancer:     &kafkago.Hash{},
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
			RequiredAcks: cfg.RequiredAcks,
			Compression:  cfg.Compression,
			MaxAttempts:  cfg.MaxAttempts,
		},
	}
}

// Publish writes one message to topic with attrs as headers. The call is
// synchronous and returns once the brokers acknowledged the write.
func (p *Producer) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error {
	if topic == "" {
		return errors.New("kafka: empty topic")
	}
	return p.writer.WriteMessages(ctx, newMessage(topic, data, attrs))
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func newMessage(topic string, data []byte, attrs map[string]string) kafkago.Message {
	msg := kafkago.Message{
		Topic: topic,
		Value: data,
		Time:  time.Now().UTC(),
	}
	if projectID, ok := attrs["projectId"]; ok {
		msg.Key = []byte(projectID)
	}
	for k, v := range attrs {
		msg.Headers = append(msg.Headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return msg
}

// CompressionFromString maps textual codec to kafka-go value.
func CompressionFromString(name string) kafkago.Compression {
	switch strings.ToLower(name) {
	case "gzip":
		return kafkago.Gzip
	case "snappy":
		return kafkago.Snappy
	case "lz4":
		return kafkago.Lz4
	case "zstd":
		return kafkago.Zstd
	default:
		return kafkago.Snappy
	}
}
