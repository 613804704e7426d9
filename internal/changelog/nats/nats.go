// Package nats ships venue change events through a NATS JetStream stream and
// applies them to the search index from a durable consumer.
package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuedex/internal/changelog"
	"github.com/kailas-cloud/venuedex/internal/domain"
)

// JetStream is the part of jetstream.JetStream used by this package.
type JetStream interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	CreateOrUpdateConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error)
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Config names the stream, subject and durable consumer.
type Config struct {
	URL     string
	Stream  string
	Subject string
	Durable string
	// AckWait is how long the server waits before redelivering.
	AckWait    time.Duration
	MaxDeliver int
	// RetryDelay delays redelivery of events that hit an unavailable backend.
	RetryDelay time.Duration
}

func (c *Config) applyDefaults() {
	if c.Stream == "" {
		c.Stream = "VENUES"
	}
	if c.Subject == "" {
		c.Subject = "venues.changes"
	}
	if c.Durable == "" {
		c.Durable = "venuedex-indexer"
	}
	if c.AckWait <= 0 {
		c.AckWait = 30 * time.Second
	}
	if c.MaxDeliver == 0 {
		c.MaxDeliver = 10
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
}

// Conn owns the NATS connection.
type Conn struct {
	nc  *nats.Conn
	js  JetStream
	cfg Config
}

// Connect dials NATS and makes sure the change stream exists.
func Connect(ctx context.Context, cfg Config) (*Conn, error) {
	cfg.applyDefaults()
	nc, err := nats.Connect(cfg.URL, nats.Name("venuedex"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}
	if err := EnsureStream(ctx, js, cfg); err != nil {
		nc.Close()
		return nil, err
	}
	return &Conn{nc: nc, js: js, cfg: cfg}, nil
}

// Close drains and closes the connection.
func (c *Conn) Close() {
	_ = c.nc.Drain()
}

// Publisher returns a changelog.Hook publishing to the stream.
func (c *Conn) Publisher() *Publisher { return NewPublisher(c.js, c.cfg) }

// Consumer returns a consumer applying events through a.
func (c *Conn) Consumer(a changelog.Applier, log *zap.Logger) *Consumer {
	return NewConsumer(c.js, c.cfg, a, log)
}

// EnsureStream creates or updates the file-backed change stream.
func EnsureStream(ctx context.Context, js JetStream, cfg Config) error {
	cfg.applyDefaults()
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{cfg.Subject + ".>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", cfg.Stream, err)
	}
	return nil
}

// Publisher publishes change events. It implements changelog.Hook.
type Publisher struct {
	js      JetStream
	subject string
}

var _ changelog.Hook = (*Publisher)(nil)

// NewPublisher creates a publisher.
func NewPublisher(js JetStream, cfg Config) *Publisher {
	cfg.applyDefaults()
	return &Publisher{js: js, subject: cfg.Subject}
}

// Publish sends e to <subject>.<op>. The message id deduplicates retries of
// the same event on the server.
func (p *Publisher) Publish(ctx context.Context, e changelog.Event) error {
	data, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := p.subject + "." + string(e.Op)
	msgID := fmt.Sprintf("%s:%s:%d", e.ID, e.Op, e.At.UnixNano())
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Consumer applies change events from a durable consumer.
type Consumer struct {
	js      JetStream
	cfg     Config
	applier changelog.Applier
	log     *zap.Logger
}

// NewConsumer creates a consumer.
func NewConsumer(js JetStream, cfg Config, a changelog.Applier, log *zap.Logger) *Consumer {
	cfg.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{js: js, cfg: cfg, applier: a, log: log}
}

// Run consumes until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	cons, err := c.js.CreateOrUpdateConsumer(ctx, c.cfg.Stream, jetstream.ConsumerConfig{
		Durable:       c.cfg.Durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.cfg.AckWait,
		MaxDeliver:    c.cfg.MaxDeliver,
		FilterSubject: c.cfg.Subject + ".>",
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", c.cfg.Durable, err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) { c.Handle(ctx, msg) })
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	c.log.Info("changelog consumer started",
		zap.String("stream", c.cfg.Stream), zap.String("durable", c.cfg.Durable))

	<-ctx.Done()
	cc.Stop()
	c.log.Info("changelog consumer stopped")
	return nil
}

// Handle applies one message. Undecodable events and permanent failures are
// terminated; an unavailable backend naks for redelivery.
func (c *Consumer) Handle(ctx context.Context, msg jetstream.Msg) {
	e, err := changelog.Unmarshal(msg.Data())
	if err != nil {
		c.log.Warn("dropping malformed change event", zap.String("subject", msg.Subject()), zap.Error(err))
		_ = msg.Term()
		return
	}

	err = changelog.Apply(ctx, c.applier, e)
	switch {
	case err == nil:
		_ = msg.Ack()
	case errors.Is(err, domain.ErrBackendUnavailable):
		c.log.Warn("index unavailable, redelivering", zap.String("venue_id", e.ID), zap.Error(err))
		_ = msg.NakWithDelay(c.cfg.RetryDelay)
	default:
		c.log.Error("change event failed", zap.String("venue_id", e.ID),
			zap.String("op", string(e.Op)), zap.Error(err))
		_ = msg.Term()
	}
}
