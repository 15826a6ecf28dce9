// Package natsbus publishes outcome notifications to NATS JetStream subjects.
package natsbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type Config struct {
	URL            string
	ConnectTimeout time.Duration
}

// Publisher sends messages through a JetStream context so every publish is
// acknowledged by the stream that captures the subject.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

func NewPublisher(cfg Config) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Timeout(cfg.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", cfg.URL, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("init jetstream: %w", err)
	}
	return &Publisher{conn: nc, js: js}, nil
}

// Publish sends data to subject topic with attrs as message headers.
func (p *Publisher) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error {
	if topic == "" {
		return errors.New("nats: empty subject")
	}
	if _, err := p.js.PublishMsg(newMsg(topic, data, attrs), nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}

func newMsg(subject string, data []byte, attrs map[string]string) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range attrs {
		msg.Header.Set(k, v)
	}
	return msg
}
