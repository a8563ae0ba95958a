// Package presence tracks which actors are actively viewing or editing a
// graduation, so collaborator banners can be shown, and answers whether a
// graduation has pending local edits in flight.
package presence

import "sync"

// OthersFunc receives the ids of the other actors present on the same
// graduation whenever the set changes.
type OthersFunc func(otherActorIDs []string)

// Tracker is the presence collaborator contract consumed by the
// subscription coordinator. Implementations must be safe for concurrent
// use.
type Tracker interface {
	// StartTracking registers an actor on a graduation. The callback fires
	// with the current other-actor set immediately and again on every
	// change until StopTracking.
	StartTracking(entityID, actorID string, onOthersChanged OthersFunc)

	// StopTracking removes an actor from a graduation. Unknown pairs are
	// ignored.
	StopTracking(entityID, actorID string)

	// HasPendingLocalChanges reports whether the graduation has local
	// edits that have not been flushed yet. While true, inbound realtime
	// updates must not be rendered over them.
	HasPendingLocalChanges(entityID string) bool
}

// MemoryTracker is an in-process Tracker for tests and the development
// server.
type MemoryTracker struct {
	mu      sync.Mutex
	rooms   map[string]map[string]OthersFunc
	pending map[string]bool
}

// NewMemoryTracker creates an empty MemoryTracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		rooms:   make(map[string]map[string]OthersFunc),
		pending: make(map[string]bool),
	}
}

// StartTracking implements Tracker. Re-registering an actor replaces its
// callback.
func (t *MemoryTracker) StartTracking(entityID, actorID string, onOthersChanged OthersFunc) {
	t.mu.Lock()
	room, ok := t.rooms[entityID]
	if !ok {
		room = make(map[string]OthersFunc)
		t.rooms[entityID] = room
	}
	room[actorID] = onOthersChanged
	notify := t.snapshotLocked(entityID)
	t.mu.Unlock()

	for _, n := range notify {
		n.fn(n.others)
	}
}

// StopTracking implements Tracker.
func (t *MemoryTracker) StopTracking(entityID, actorID string) {
	t.mu.Lock()
	room, ok := t.rooms[entityID]
	if !ok {
		t.mu.Unlock()
		return
	}
	if _, present := room[actorID]; !present {
		t.mu.Unlock()
		return
	}
	delete(room, actorID)
	if len(room) == 0 {
		delete(t.rooms, entityID)
	}
	notify := t.snapshotLocked(entityID)
	t.mu.Unlock()

	for _, n := range notify {
		n.fn(n.others)
	}
}

// HasPendingLocalChanges implements Tracker.
func (t *MemoryTracker) HasPendingLocalChanges(entityID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending[entityID]
}

// SetPendingLocalChanges flags or clears in-flight local edits for a
// graduation. The editing surface calls this around its save cycle.
func (t *MemoryTracker) SetPendingLocalChanges(entityID string, pending bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pending {
		t.pending[entityID] = true
	} else {
		delete(t.pending, entityID)
	}
}

// Actors returns the actor ids currently tracked on a graduation.
func (t *MemoryTracker) Actors(entityID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	room := t.rooms[entityID]
	out := make([]string, 0, len(room))
	for id := range room {
		out = append(out, id)
	}
	return out
}

type notification struct {
	fn     OthersFunc
	others []string
}

// snapshotLocked builds one notification per tracked actor, each carrying
// the other actors in the room.
func (t *MemoryTracker) snapshotLocked(entityID string) []notification {
	room := t.rooms[entityID]
	out := make([]notification, 0, len(room))
	for actorID, fn := range room {
		others := make([]string, 0, len(room)-1)
		for id := range room {
			if id != actorID {
				others = append(others, id)
			}
		}
		out = append(out, notification{fn: fn, others: others})
	}
	return out
}
