// Package resolve maps human-friendly slugs and opaque identifiers to
// canonical graduation ids.
package resolve

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gradbook-dev/gradbook/internal/errors"
	"github.com/gradbook-dev/gradbook/pkg/store"
)

// Resolver disambiguates identifiers by shape and performs at most one
// slug lookup per call. Resolution is idempotent: resolving a canonical id
// returns it unchanged with zero I/O.
type Resolver struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a Resolver. A nil logger falls back to slog.Default().
func New(st store.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: st, logger: logger}
}

// Resolve returns the canonical id for an identifier, or "" if no
// graduation matches.
//
// A transport failure during the slug lookup is reported to the caller the
// same way as a miss (empty id) so dispatch degrades uniformly, but the
// returned error carries the transport category and the failure is logged
// with context so the two outcomes stay distinguishable in observability.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (string, error) {
	if identifier == "" {
		return "", nil
	}
	if !IsSlug(identifier) {
		return identifier, nil
	}

	g, err := r.store.GetBySlug(ctx, identifier)
	if err != nil {
		terr := errors.New(errors.CategoryTransport, "slug lookup failed").
			WithEntity(identifier).
			Wrap(err)
		r.logger.Error("slug lookup failed", terr.LogArgs()...)
		return "", terr
	}
	if g == nil {
		return "", nil
	}
	return g.ID, nil
}

// IsSlug reports whether an identifier is slug-shaped: two or more
// non-empty hyphen-delimited words of lowercase letters and digits.
// Anything else (flat tokens, mixed case, other punctuation) is treated as
// an opaque id.
func IsSlug(identifier string) bool {
	parts := strings.Split(identifier, "-")
	if len(parts) < 2 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
		for _, c := range part {
			if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
				return false
			}
		}
	}
	return true
}
