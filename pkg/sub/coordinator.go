package sub

import (
	"log/slog"
	"sync"

	"github.com/gradbook-dev/gradbook/pkg/presence"
	"github.com/gradbook-dev/gradbook/pkg/store"
)

// DataFunc receives realtime pushes for the active edit session. A nil
// graduation means it no longer exists.
type DataFunc func(g *store.Graduation)

// editSession is the coordinator's current pair: one subscription handle
// and one presence session, owned together.
type editSession struct {
	entityID string
	actorID  string
	gen      uint64
	cancel   func()
}

// Coordinator owns the single-slot edit session resource.
// Safe for concurrent use; intended use is one dispatching goroutine.
type Coordinator struct {
	store    store.Store
	presence presence.Tracker
	logger   *slog.Logger

	mu      sync.Mutex
	gen     uint64
	current *editSession
}

// New creates a Coordinator. A nil logger falls back to slog.Default().
func New(st store.Store, tr presence.Tracker, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: st, presence: tr, logger: logger}
}

// EnterEditSession makes the given graduation the active edit session:
// it tears down the previous subscription and presence pair, then attaches
// a new realtime subscription and starts presence tracking.
//
// Re-entering the same graduation still detaches and reattaches, because
// the callbacks may capture stale route or actor context otherwise.
//
// onData receives every push for the session, already filtered: stale
// pushes from superseded sessions are dropped, and pushes arriving while
// the graduation has pending local changes are suppressed (received, not
// rendered) so they cannot clobber in-flight edits. onOthers receives
// collaborator presence changes.
func (c *Coordinator) EnterEditSession(entityID, actorID string, onData DataFunc, onOthers presence.OthersFunc) {
	c.detach()

	c.mu.Lock()
	c.gen++
	sess := &editSession{entityID: entityID, actorID: actorID, gen: c.gen}
	c.current = sess
	c.mu.Unlock()

	c.logger.Debug("entering edit session", "entity_id", entityID, "actor_id", actorID)

	// Attach outside the lock: the subscription may fire synchronously and
	// the wrapped callback takes the lock for the staleness check.
	cancel := c.store.OnUpdate(entityID, func(g *store.Graduation) {
		if !c.isCurrent(sess) {
			return
		}
		if g != nil && c.presence.HasPendingLocalChanges(entityID) {
			// Push received, handle stays live; only the render is skipped.
			c.logger.Debug("suppressing realtime update over pending local changes",
				"entity_id", entityID)
			return
		}
		onData(g)
	})
	c.presence.StartTracking(entityID, actorID, func(others []string) {
		if !c.isCurrent(sess) {
			return
		}
		if onOthers != nil {
			onOthers(others)
		}
	})

	c.mu.Lock()
	if c.current == sess {
		sess.cancel = cancel
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// A concurrent enter won the slot while we were attaching; this
	// session must not leave a live handle behind.
	c.presence.StopTracking(entityID, actorID)
	cancel()
}

// LeaveEditSession tears down the current pair with no new attach. Called
// on navigation to any non-edit route; a no-op when nothing is active.
func (c *Coordinator) LeaveEditSession() {
	c.detach()
}

// detach removes and tears down the current session, presence first, then
// the subscription. Teardown completes before any new attach begins.
func (c *Coordinator) detach() {
	c.mu.Lock()
	sess := c.current
	c.current = nil
	c.mu.Unlock()

	if sess == nil {
		return
	}
	c.logger.Debug("leaving edit session", "entity_id", sess.entityID, "actor_id", sess.actorID)
	c.presence.StopTracking(sess.entityID, sess.actorID)
	if sess.cancel != nil {
		sess.cancel()
	}
}

// isCurrent reports whether sess still owns the slot.
func (c *Coordinator) isCurrent(sess *editSession) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && c.current.gen == sess.gen
}

// Active returns the entity id of the live edit session, if any.
func (c *Coordinator) Active() (entityID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return "", false
	}
	return c.current.entityID, true
}

// HasPendingLocalChanges reports whether the graduation has unflushed
// local edits, delegated to the presence collaborator.
func (c *Coordinator) HasPendingLocalChanges(entityID string) bool {
	return c.presence.HasPendingLocalChanges(entityID)
}
