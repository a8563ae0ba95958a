package store

import "context"

// UpdateFunc receives realtime pushes for one graduation. A nil value
// means the graduation no longer exists.
type UpdateFunc func(g *Graduation)

// Store is the repository contract consumed by the navigation core.
// Implementations must be safe for concurrent use.
type Store interface {
	// GetByID returns the graduation with the given canonical id.
	// Returns (nil, nil) if it doesn't exist.
	// Returns (nil, err) on backend errors.
	GetByID(ctx context.Context, id string) (*Graduation, error)

	// GetBySlug returns the graduation matching a human-readable slug.
	// Same miss and error conventions as GetByID.
	GetBySlug(ctx context.Context, slug string) (*Graduation, error)

	// OnUpdate registers a realtime subscription for one graduation and
	// returns its disposer. The callback may fire zero or many times,
	// including synchronously during registration with the current state.
	// The disposer is idempotent.
	OnUpdate(id string, fn UpdateFunc) (cancel func())

	// Students returns the graduation's student records in display order.
	Students(ctx context.Context, gradID string) ([]Student, error)
}
