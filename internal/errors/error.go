package errors

import (
	stderrors "errors"
	"fmt"
)

// Category classifies an error within the routing taxonomy.
type Category string

const (
	// CategoryNotFound indicates an entity or slug that does not exist.
	CategoryNotFound Category = "not_found"

	// CategoryUnauthorized indicates a missing sign-in on a route that
	// requires one.
	CategoryUnauthorized Category = "unauthorized"

	// CategoryForbidden indicates a signed-in actor that is not an editor
	// or owner, including actors removed mid-session.
	CategoryForbidden Category = "forbidden"

	// CategoryLocked indicates an entity whose submissions are closed.
	CategoryLocked Category = "locked"

	// CategoryInvalidLink indicates a direct-upload link token that matches
	// no student.
	CategoryInvalidLink Category = "invalid_link"

	// CategoryTransport indicates a repository or network failure.
	CategoryTransport Category = "transport"

	// CategoryVerifyTimeout indicates a password verification attempt that
	// exceeded its wall-clock bound.
	CategoryVerifyTimeout Category = "verify_timeout"

	// CategoryTooManyAttempts indicates a password gate in lockout.
	CategoryTooManyAttempts Category = "too_many_attempts"

	// CategoryConfig indicates a missing or malformed configuration file.
	CategoryConfig Category = "config"
)

// Error is a categorized error with optional dispatch context.
type Error struct {
	// Category is the taxonomy bucket for this error.
	Category Category

	// Message is a short description of the error.
	Message string

	// EntityID is the graduation id involved, if known.
	EntityID string

	// Route is the route name being dispatched, if known.
	Route string

	// ActorID is the acting identity, if known.
	ActorID string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithEntity adds the entity id to the error.
func (e *Error) WithEntity(id string) *Error {
	e.EntityID = id
	return e
}

// WithRoute adds the route name to the error.
func (e *Error) WithRoute(name string) *Error {
	e.Route = name
	return e
}

// WithActor adds the acting identity to the error.
func (e *Error) WithActor(id string) *Error {
	e.ActorID = id
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// LogArgs returns the error's context as alternating slog key/value pairs.
func (e *Error) LogArgs() []any {
	args := []any{"category", string(e.Category)}
	if e.EntityID != "" {
		args = append(args, "entity_id", e.EntityID)
	}
	if e.Route != "" {
		args = append(args, "route", e.Route)
	}
	if e.ActorID != "" {
		args = append(args, "actor_id", e.ActorID)
	}
	if e.Wrapped != nil {
		args = append(args, "error", e.Wrapped)
	}
	return args
}

// New creates an Error with the given category and message.
func New(category Category, message string) *Error {
	return &Error{Category: category, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{Category: category, Message: fmt.Sprintf(format, args...)}
}

// CategoryOf returns the category of err, walking wrapped chains.
// Errors outside the taxonomy report CategoryTransport: from the router's
// point of view an unclassified failure is indistinguishable from a
// transport fault.
func CategoryOf(err error) Category {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category
	}
	return CategoryTransport
}

func is(err error, category Category) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Category == category
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return is(err, CategoryNotFound) }

// IsUnauthorized reports whether err is an unauthorized error.
func IsUnauthorized(err error) bool { return is(err, CategoryUnauthorized) }

// IsForbidden reports whether err is a forbidden error.
func IsForbidden(err error) bool { return is(err, CategoryForbidden) }

// IsLocked reports whether err is a locked error.
func IsLocked(err error) bool { return is(err, CategoryLocked) }

// IsInvalidLink reports whether err is an invalid-link error.
func IsInvalidLink(err error) bool { return is(err, CategoryInvalidLink) }

// IsTransport reports whether err is a transport error.
func IsTransport(err error) bool { return is(err, CategoryTransport) }

// IsVerifyTimeout reports whether err is a verification-timeout error.
func IsVerifyTimeout(err error) bool { return is(err, CategoryVerifyTimeout) }

// IsTooManyAttempts reports whether err is a lockout error.
func IsTooManyAttempts(err error) bool { return is(err, CategoryTooManyAttempts) }

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool { return is(err, CategoryConfig) }
