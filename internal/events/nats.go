package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSPublisher publishes signup events to a JetStream stream.
type NATSPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewNATSPublisher connects to NATS and ensures the signup stream exists.
func NewNATSPublisher(url string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", "events")

	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"signup.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    30 * 24 * time.Hour,
	})
	if err != nil {
		// The stream may already exist with a different config owner, or
		// NATS may not be ready yet. Publishing will surface real failures.
		logger.Warn("could not ensure signup stream", "error", err)
	}

	return &NATSPublisher{nc: nc, js: js, logger: logger}, nil
}

func (p *NATSPublisher) SignupStarted(ctx context.Context, env Envelope) error {
	return p.publish(ctx, SubjectStarted, env)
}

func (p *NATSPublisher) SignupRegistered(ctx context.Context, env Envelope) error {
	return p.publish(ctx, SubjectRegistered, env)
}

func (p *NATSPublisher) SignupCompleted(ctx context.Context, env Envelope) error {
	return p.publish(ctx, SubjectCompleted, env)
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, env Envelope) error {
	if env.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
