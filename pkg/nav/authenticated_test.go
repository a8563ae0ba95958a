package nav

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gradbook-dev/gradbook/pkg/gate"
	"github.com/gradbook-dev/gradbook/pkg/notify"
	"github.com/gradbook-dev/gradbook/pkg/presence"
	"github.com/gradbook-dev/gradbook/pkg/resolve"
	"github.com/gradbook-dev/gradbook/pkg/store"
	"github.com/gradbook-dev/gradbook/pkg/sub"
)

// callRenderer records every render invocation as a compact event string.
type callRenderer struct {
	mu    sync.Mutex
	calls []string

	// panicOn, when non-empty, makes the matching render call panic once.
	panicOn string
}

func (r *callRenderer) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, event)
	if r.panicOn != "" && strings.HasPrefix(event, r.panicOn) {
		r.panicOn = ""
		panic("render failed: " + event)
	}
}

func (r *callRenderer) RenderLogin() { r.record("login") }

func (r *callRenderer) RenderDashboard(actorID string) { r.record("dashboard:" + actorID) }

func (r *callRenderer) RenderNewGraduation(actorID string) { r.record("new:" + actorID) }

func (r *callRenderer) RenderEditor(g *store.Graduation) { r.record("editor:" + g.ID) }

func (r *callRenderer) RenderCollaborators(others []string) {
	r.record("collab:" + strings.Join(others, ","))
}

func (r *callRenderer) RenderPublicView(g *store.Graduation) { r.record("view:" + g.ID) }

func (r *callRenderer) RenderPasswordPrompt(g *store.Graduation, state gate.State, attempts uint, _ time.Time) {
	r.record(fmt.Sprintf("prompt:%s:%s:%d", g.ID, state, attempts))
}

func (r *callRenderer) RenderUploadPortal(g *store.Graduation, students []store.Student) {
	r.record(fmt.Sprintf("portal:%s:%d", g.ID, len(students)))
}

func (r *callRenderer) RenderStudentUpload(g *store.Graduation, s store.Student) {
	r.record("upload:" + g.ID + ":" + s.ID)
}

func (r *callRenderer) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return ""
	}
	return r.calls[len(r.calls)-1]
}

func (r *callRenderer) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *callRenderer) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c == event {
			return true
		}
	}
	return false
}

// callNotifier records notices and modals.
type callNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *callNotifier) record(event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, event)
}

func (n *callNotifier) Notice(level notify.Level, _ string) {
	n.record("notice:" + string(level))
}

func (n *callNotifier) Modal(kind notify.ModalKind, _ string) {
	n.record("modal:" + string(kind))
}

func (n *callNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.calls) == 0 {
		return ""
	}
	return n.calls[len(n.calls)-1]
}

type authEnv struct {
	store    *store.MemoryStore
	coord    *sub.Coordinator
	renderer *callRenderer
	notifier *callNotifier
	router   *AuthRouter
}

func newAuthEnv() *authEnv {
	st := store.NewMemoryStore()
	logger := slog.Default()
	coord := sub.New(st, presence.NewMemoryTracker(), logger)
	renderer := &callRenderer{}
	notifier := &callNotifier{}
	router := NewAuthRouter(AuthConfig{
		Store:       st,
		Resolver:    resolve.New(st, logger),
		Coordinator: coord,
		Renderer:    renderer,
		Notifier:    notifier,
		Logger:      logger,
	})
	return &authEnv{store: st, coord: coord, renderer: renderer, notifier: notifier, router: router}
}

func TestDispatchSignedOutRendersLogin(t *testing.T) {
	env := newAuthEnv()

	env.router.Dispatch(context.Background(), "#/edit/g1", "")

	if got := env.renderer.last(); got != "login" {
		t.Errorf("Expected login render, got %q", got)
	}
	if _, ok := env.coord.Active(); ok {
		t.Error("Expected no active edit session for signed-out dispatch")
	}
}

func TestDispatchDashboard(t *testing.T) {
	env := newAuthEnv()

	env.router.Dispatch(context.Background(), "#/dashboard", "alice")

	if got := env.renderer.last(); got != "dashboard:alice" {
		t.Errorf("Expected dashboard render, got %q", got)
	}
}

func TestDispatchUnknownFragmentFallsBackToDashboard(t *testing.T) {
	env := newAuthEnv()

	env.router.Dispatch(context.Background(), "#/totally/bogus", "alice")

	if got := env.renderer.last(); got != "dashboard:alice" {
		t.Errorf("Expected dashboard fallback, got %q", got)
	}
}

func TestDispatchNewGraduation(t *testing.T) {
	env := newAuthEnv()

	env.router.Dispatch(context.Background(), "#/new", "alice")

	if got := env.renderer.last(); got != "new:alice" {
		t.Errorf("Expected new-graduation render, got %q", got)
	}
}

func TestDispatchEditByID(t *testing.T) {
	env := newAuthEnv()
	env.store.Put(&store.Graduation{ID: "g1", Title: "Class of 2026", EditorIDs: []string{"alice"}})

	env.router.Dispatch(context.Background(), "#/edit/g1", "alice")

	// The editor render is followed by the initial collaborator snapshot,
	// so check membership rather than the final call.
	if !env.renderer.has("editor:g1") {
		t.Errorf("Expected editor render, got %v", env.renderer.all())
	}
	if !env.renderer.has("collab:") {
		t.Errorf("Expected empty collaborator snapshot, got %v", env.renderer.all())
	}
	if id, ok := env.coord.Active(); !ok || id != "g1" {
		t.Errorf("Expected active session on g1, got %q (%v)", id, ok)
	}
}

func TestDispatchEditBySlug(t *testing.T) {
	env := newAuthEnv()
	env.store.Put(&store.Graduation{ID: "g1", Slug: "smith-family-2026", EditorIDs: []string{"alice"}})

	env.router.Dispatch(context.Background(), "#/edit/smith-family-2026", "alice")

	if !env.renderer.has("editor:g1") {
		t.Errorf("Expected editor render via slug, got %v", env.renderer.all())
	}
}

func TestDispatchEditUnresolvedRedirects(t *testing.T) {
	env := newAuthEnv()

	env.router.Dispatch(context.Background(), "#/edit/no-such-slug", "alice")

	if got := env.renderer.last(); got != "dashboard:alice" {
		t.Errorf("Expected dashboard redirect, got %q", got)
	}
	if _, ok := env.coord.Active(); ok {
		t.Error("Expected no active session after unresolved edit")
	}
}

func TestDispatchEditDeniedForNonEditor(t *testing.T) {
	env := newAuthEnv()
	env.store.Put(&store.Graduation{ID: "g1", EditorIDs: []string{"bob"}})

	env.router.Dispatch(context.Background(), "#/edit/g1", "alice")

	if got := env.renderer.last(); got != "dashboard:alice" {
		t.Errorf("Expected dashboard after denial, got %q", got)
	}
	if got := env.notifier.last(); got != "notice:warning" {
		t.Errorf("Expected removal notice, got %q", got)
	}
	if _, ok := env.coord.Active(); ok {
		t.Error("Expected session torn down after denial")
	}
}

func TestDispatchEditLegacyOwnerAllowed(t *testing.T) {
	env := newAuthEnv()
	env.store.Put(&store.Graduation{ID: "g1", OwnerID: "alice"})

	env.router.Dispatch(context.Background(), "#/edit/g1", "alice")

	if !env.renderer.has("editor:g1") {
		t.Errorf("Expected editor render for legacy owner, got %v", env.renderer.all())
	}
}

func TestDispatchEditRevokedMidSession(t *testing.T) {
	env := newAuthEnv()
	env.store.Put(&store.Graduation{ID: "g1", EditorIDs: []string{"alice"}})
	env.router.Dispatch(context.Background(), "#/edit/g1", "alice")

	env.store.Put(&store.Graduation{ID: "g1", EditorIDs: []string{"bob"}})

	if got := env.renderer.last(); got != "dashboard:alice" {
		t.Errorf("Expected dashboard after mid-session revocation, got %q", got)
	}
	if got := env.notifier.last(); got != "notice:warning" {
		t.Errorf("Expected removal notice, got %q", got)
	}
	if _, ok := env.coord.Active(); ok {
		t.Error("Expected session torn down after revocation")
	}
}

func TestDispatchEditDeletedMidSession(t *testing.T) {
	env := newAuthEnv()
	env.store.Put(&store.Graduation{ID: "g1", EditorIDs: []string{"alice"}})
	env.router.Dispatch(context.Background(), "#/edit/g1", "alice")

	env.store.Delete("g1")

	if got := env.renderer.last(); got != "dashboard:alice" {
		t.Errorf("Expected dashboard after deletion, got %q", got)
	}
	if got := env.notifier.last(); got != "notice:error" {
		t.Errorf("Expected not-found notice, got %q", got)
	}
}

func TestDispatchEditPushRerenders(t *testing.T) {
	env := newAuthEnv()
	env.store.Put(&store.Graduation{ID: "g1", EditorIDs: []string{"alice"}})
	env.router.Dispatch(context.Background(), "#/edit/g1", "alice")

	env.store.Put(&store.Graduation{ID: "g1", Title: "Updated", EditorIDs: []string{"alice"}})

	calls := env.renderer.all()
	editors := 0
	for _, c := range calls {
		if c == "editor:g1" {
			editors++
		}
	}
	if editors != 2 {
		t.Errorf("Expected 2 editor renders (initial + push), got %d in %v", editors, calls)
	}
}

func TestDispatchNavigatingAwayEndsSession(t *testing.T) {
	env := newAuthEnv()
	env.store.Put(&store.Graduation{ID: "g1", EditorIDs: []string{"alice"}})
	env.router.Dispatch(context.Background(), "#/edit/g1", "alice")

	env.router.Dispatch(context.Background(), "#/dashboard", "alice")

	if _, ok := env.coord.Active(); ok {
		t.Error("Expected session torn down after navigating away")
	}

	// A push after leaving must not reach the renderer.
	before := len(env.renderer.all())
	env.store.Put(&store.Graduation{ID: "g1", Title: "Late", EditorIDs: []string{"alice"}})
	if after := len(env.renderer.all()); after != before {
		t.Errorf("Expected no render after leaving, got %d new calls", after-before)
	}
}

func TestDispatchLoginWhileSignedInDelegates(t *testing.T) {
	env := newAuthEnv()
	logger := slog.Default()
	pub := NewPublicRouter(PublicConfig{
		Store:    env.store,
		Resolver: resolve.New(env.store, logger),
		Gates:    gate.NewKeeper(&scriptedVerifier{}),
		Renderer: env.renderer,
		Notifier: env.notifier,
		OnAuthenticatedLogin: func(_ context.Context, actorID string) {
			env.renderer.RenderDashboard(actorID)
		},
		Logger: logger,
	})
	env.router.public = pub

	env.router.Dispatch(context.Background(), "#/login", "alice")

	if got := env.renderer.last(); got != "dashboard:alice" {
		t.Errorf("Expected dashboard for signed-in login, got %q", got)
	}
}

func TestDispatchRecoversFromRenderPanic(t *testing.T) {
	env := newAuthEnv()
	env.renderer.panicOn = "new:"

	env.router.Dispatch(context.Background(), "#/new", "alice")

	if got := env.renderer.last(); got != "dashboard:alice" {
		t.Errorf("Expected dashboard fallback after panic, got %q", got)
	}
}
