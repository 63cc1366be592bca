package port

import (
	"context"

	"github.com/tdquang/car-escrow/internal/core/domain"
)

// EventSink receives domain events from the emitter's delivery workers.
// Delivery is at least once; implementations must apply idempotently,
// keyed on the event ID.
type EventSink interface {
	Deliver(ctx context.Context, e domain.Event) error
}
