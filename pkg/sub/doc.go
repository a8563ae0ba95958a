// Package sub owns the lifecycle of the process's single realtime edit
// session: at most one live repository subscription and one presence
// session at any time, replaced atomically on every route change.
//
// The coordinator's "current pair" slot is the sole source of truth.
// Entering a session always tears the previous pair down first (presence
// stop, then unsubscribe) before attaching, a later enter always wins, and
// callbacks from superseded sessions are filtered by a generation counter
// so a stale push can never render over the current route.
package sub
