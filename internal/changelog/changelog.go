// Package changelog carries post-commit venue mutations to the search index.
package changelog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/venuedex/internal/logger"
)

// Op is the kind of committed mutation.
type Op string

// Mutation kinds.
const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Event is one committed write to a venue.
type Event struct {
	ID string    `json:"id"`
	Op Op        `json:"op"`
	At time.Time `json:"at"`
}

// Validate checks an event decoded from the wire.
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if e.Op != OpUpsert && e.Op != OpDelete {
		return fmt.Errorf("unknown event op %q", e.Op)
	}
	return nil
}

// Marshal encodes the event for transport.
func (e Event) Marshal() ([]byte, error) { return json.Marshal(e) }

// Unmarshal decodes and validates an event.
func Unmarshal(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Hook is invoked after a venue write commits.
type Hook interface {
	Publish(ctx context.Context, e Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, e Event) error

// Publish calls f.
func (f HookFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

// Applier updates the index for one venue.
type Applier interface {
	IndexOne(ctx context.Context, id string) (string, error)
	RemoveOne(ctx context.Context, id string) error
}

// Apply brings the index in line with e.
func Apply(ctx context.Context, a Applier, e Event) error {
	switch e.Op {
	case OpUpsert:
		_, err := a.IndexOne(ctx, e.ID)
		return err
	case OpDelete:
		return a.RemoveOne(ctx, e.ID)
	default:
		return fmt.Errorf("unknown event op %q", e.Op)
	}
}

// Inline applies events synchronously in the writer's goroutine.
type Inline struct {
	applier Applier
}

// NewInline creates an inline hook.
func NewInline(a Applier) *Inline {
	return &Inline{applier: a}
}

// Publish applies e immediately. Index errors are logged and returned; the
// write that produced e has already committed.
func (h *Inline) Publish(ctx context.Context, e Event) error {
	if err := Apply(ctx, h.applier, e); err != nil {
		logger.FromContext(ctx).Warn("inline index update failed",
			zap.String("venue_id", e.ID), zap.String("op", string(e.Op)), zap.Error(err))
		return fmt.Errorf("apply %s %s: %w", e.Op, e.ID, err)
	}
	return nil
}
