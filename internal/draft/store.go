package draft

import "context"

// EventKind classifies a change to a user's draft row.
type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// Event is a change notification for one user's draft. Fingerprint carries
// the causality token of the write that produced the event; it is empty for
// deletes and for backends that cannot attach one, in which case the
// consumer must re-fetch to find out what changed.
type Event struct {
	Kind        EventKind
	Fingerprint string
}

// Store describes the durable per-user draft row. Exactly one draft exists
// per user; Upsert replaces the whole row, there is no field-level update.
type Store interface {
	// Get returns the user's draft, or common.ErrorNotFound.
	Get(ctx context.Context, userID string) (*Draft, error)

	// Upsert inserts or fully replaces the user's draft row.
	Upsert(ctx context.Context, d *Draft) error

	// Delete removes the user's draft. Deleting a missing draft is not an
	// error.
	Delete(ctx context.Context, userID string) error
}

// Watcher delivers change notifications for one user's draft row. Delivery
// is best-effort: consumers must pair it with periodic re-fetch and never
// rely on every event arriving.
type Watcher interface {
	// Watch subscribes to draft events for userID. The returned channel is
	// closed when ctx is cancelled or the feed fails.
	Watch(ctx context.Context, userID string) (<-chan Event, error)
}
