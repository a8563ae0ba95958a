// Package gate holds the access predicates the routers apply before
// rendering anything: ownership and editor-membership checks, lock-state
// checks for the upload routes, direct-link token matching, and the
// password-verification state machine with progressive lockout that
// protects gated public views.
//
// The predicates are pure. The password gate is the only stateful part:
// one Gate per protected graduation, held in a session-scoped Keeper, with
// injectable clock and timers so every transition is testable without
// sleeping.
package gate
