// Package pubsub publishes outcome notifications to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

type Config struct {
	ProjectID       string
	CredentialsFile string
}

// Publisher sends messages to topics of one project.
type Publisher struct {
	client *pubsub.Client
}

// NewPublisher connects to Pub/Sub with the credentials named in cfg.
// PUBSUB_EMULATOR_HOST is honoured by the client library.
func NewPublisher(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("pubsub: project id is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("init pubsub client: %w", err)
	}
	return &Publisher{client: client}, nil
}

// Publish sends data with attrs to topic and waits for the server-assigned
// message id.
func (p *Publisher) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error {
	if topic == "" {
		return errors.New("pubsub: empty topic")
	}
	t := p.client.Topic(topic)
	defer t.Stop()

	res := t.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
