// Package store defines the repository contract the navigation core reads
// graduations through, and an in-memory implementation of it.
//
// The routers only ever consume the Store interface: point reads by id,
// slug lookup, an ordered student listing, and a realtime update
// subscription that returns a disposer. Persistence beyond these calls is
// out of scope here; MemoryStore is the backend used by tests and the
// development server.
package store
