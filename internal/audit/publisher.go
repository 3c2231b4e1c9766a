// Package audit emits structured events for every registry request/response
// pair and GTIN lifecycle action. The system does not interpret these events;
// it hands them to a sink (memory for tests, Kafka in deployments) for the
// external logging collaborator to consume.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is an append-only sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. Append failures are reported
// but callers treat auditing as best-effort; a down sink must not block GTIN
// operations.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}
