package nav

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	gerrors "github.com/gradbook-dev/gradbook/internal/errors"
	"github.com/gradbook-dev/gradbook/pkg/gate"
	"github.com/gradbook-dev/gradbook/pkg/notify"
	"github.com/gradbook-dev/gradbook/pkg/resolve"
	"github.com/gradbook-dev/gradbook/pkg/route"
	"github.com/gradbook-dev/gradbook/pkg/store"
	"github.com/gradbook-dev/gradbook/pkg/sub"
)

// PublicConfig wires a PublicRouter's collaborators.
type PublicConfig struct {
	Store    store.Store
	Resolver *resolve.Resolver
	Gates    *gate.Keeper
	Renderer Renderer
	Notifier notify.Notifier

	// Coordinator, when set, is torn down on every public dispatch: none of
	// the public routes hold an edit session.
	Coordinator *sub.Coordinator

	// OnAuthenticatedLogin handles #/login reached while signed in.
	// Optional; without it the login view is rendered regardless.
	OnAuthenticatedLogin func(ctx context.Context, actorID string)

	// Logger falls back to slog.Default() when nil.
	Logger *slog.Logger
}

// PublicRouter dispatches routes reachable without authentication.
type PublicRouter struct {
	store    store.Store
	resolver *resolve.Resolver
	gates    *gate.Keeper
	renderer Renderer
	notifier notify.Notifier
	coord    *sub.Coordinator
	onLogin  func(ctx context.Context, actorID string)
	logger   *slog.Logger

	// navGen invalidates in-flight work when a newer dispatch supersedes
	// it. Reprompt callbacks and post-I/O renders check it before touching
	// the renderer.
	navGen atomic.Uint64
}

// NewPublicRouter creates a PublicRouter.
func NewPublicRouter(cfg PublicConfig) *PublicRouter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PublicRouter{
		store:    cfg.Store,
		resolver: cfg.Resolver,
		gates:    cfg.Gates,
		renderer: cfg.Renderer,
		notifier: cfg.Notifier,
		coord:    cfg.Coordinator,
		onLogin:  cfg.OnAuthenticatedLogin,
		logger:   logger,
	}
}

// Dispatch handles one fragment-change event. actorID may be empty; public
// routes never require one.
func (r *PublicRouter) Dispatch(ctx context.Context, fragment, actorID string) {
	rt := route.Parse(fragment)
	gen := r.navGen.Add(1)
	ctx, span := startDispatchSpan(ctx, rt)

	status := statusRendered
	var recovered any
	defer func() {
		if recovered = recover(); recovered != nil {
			status = statusError
			r.logger.Error("dispatch panicked",
				"route", string(rt.Name), "fragment", fragment,
				"panic", fmt.Sprint(recovered))
			r.renderer.RenderLogin()
		}
		recordDispatch(rt.Name, status)
		endDispatchSpan(span, status, recovered)
	}()

	if r.coord != nil {
		r.coord.LeaveEditSession()
	}

	switch rt.Name {
	case route.PublicView:
		status = r.dispatchView(ctx, rt, gen)

	case route.UploadPortal:
		status = r.dispatchUpload(ctx, rt, gen, gate.LockPortal)

	case route.DirectUpload:
		status = r.dispatchUpload(ctx, rt, gen, gate.LockDirectLink)

	default: // Login, or anything routed here unexpectedly.
		if actorID != "" && r.onLogin != nil {
			r.onLogin(ctx, actorID)
			status = statusDelegated
			return
		}
		r.renderer.RenderLogin()
		status = statusLogin
	}
}

// stale reports whether a newer dispatch has started since gen.
func (r *PublicRouter) stale(gen uint64) bool {
	return r.navGen.Load() != gen
}

// lookup resolves an identifier to a graduation. A nil graduation with a
// nil error is the uniform miss outcome; transport failures are logged,
// counted, and degraded to that same miss.
func (r *PublicRouter) lookup(ctx context.Context, identifier string) *store.Graduation {
	id, err := r.resolver.Resolve(ctx, identifier)
	if err != nil {
		recordTransportFailure()
		return nil
	}
	if id == "" {
		return nil
	}
	g, err := r.store.GetByID(ctx, id)
	if err != nil {
		r.logger.Error("graduation fetch failed",
			"entity_id", id, "error", err)
		recordTransportFailure()
		return nil
	}
	return g
}

func (r *PublicRouter) dispatchView(ctx context.Context, rt route.Route, gen uint64) string {
	g := r.lookup(ctx, rt.Param(route.ParamGradID))
	if r.stale(gen) {
		return statusRedirected
	}
	if g == nil {
		r.notifier.Modal(notify.ModalNotFound, "This graduation could not be found.")
		return statusModal
	}

	if gate.NeedsPassword(g) && !r.gates.Verified(g.ID) {
		pg := r.gates.Gate(g.ID)
		pg.Prompt()
		pg.SetRepromptFunc(func() {
			if r.stale(gen) {
				return
			}
			r.renderer.RenderPasswordPrompt(g, pg.State(), pg.Attempts(), pg.LockedUntil())
		})
		r.renderer.RenderPasswordPrompt(g, pg.State(), pg.Attempts(), pg.LockedUntil())
		return statusPrompted
	}

	r.renderer.RenderPublicView(g)
	return statusRendered
}

// SubmitPassword feeds one password candidate to a graduation's gate and
// renders the outcome. Called by the password prompt view; gradID must be
// the canonical id the prompt was rendered for.
func (r *PublicRouter) SubmitPassword(ctx context.Context, gradID, candidate string) {
	pg := r.gates.Gate(gradID)
	wasLockedOut := pg.State() == gate.StateLockedOut

	ok, err := pg.Submit(ctx, candidate)
	switch {
	case err == gate.ErrVerificationInProgress:
		recordPasswordAttempt("in_progress")
		r.notifier.Notice(notify.LevelInfo, "Verification already in progress.")

	case gerrors.IsTooManyAttempts(err):
		recordPasswordAttempt("locked_out")
		if !wasLockedOut {
			recordLockout()
		}
		r.repromptAfterSubmit(ctx, gradID, pg)

	case gerrors.IsVerifyTimeout(err):
		recordPasswordAttempt("timeout")
		r.notifier.Notice(notify.LevelWarning,
			"Verification timed out. Please try again.")

	case err != nil:
		recordPasswordAttempt("transport_error")
		r.logger.Error("password verification failed",
			"entity_id", gradID, "error", err)
		r.notifier.Notice(notify.LevelWarning,
			"Could not verify the password. Please try again shortly.")

	case ok:
		recordPasswordAttempt("success")
		g, gerr := r.store.GetByID(ctx, gradID)
		if gerr != nil || g == nil {
			if gerr != nil {
				r.logger.Error("graduation fetch failed after verification",
					"entity_id", gradID, "error", gerr)
				recordTransportFailure()
			}
			r.notifier.Modal(notify.ModalNotFound, "This graduation could not be found.")
			return
		}
		r.renderer.RenderPublicView(g)

	default:
		recordPasswordAttempt("wrong_password")
		r.repromptAfterSubmit(ctx, gradID, pg)
	}
}

// repromptAfterSubmit re-renders the password prompt with the gate's
// current state.
func (r *PublicRouter) repromptAfterSubmit(ctx context.Context, gradID string, pg *gate.Gate) {
	g, err := r.store.GetByID(ctx, gradID)
	if err != nil || g == nil {
		if err != nil {
			r.logger.Error("graduation fetch failed",
				"entity_id", gradID, "error", err)
			recordTransportFailure()
		}
		r.notifier.Modal(notify.ModalNotFound, "This graduation could not be found.")
		return
	}
	r.renderer.RenderPasswordPrompt(g, pg.State(), pg.Attempts(), pg.LockedUntil())
}

func (r *PublicRouter) dispatchUpload(ctx context.Context, rt route.Route, gen uint64, variant gate.LockVariant) string {
	g := r.lookup(ctx, rt.Param(route.ParamGradID))
	if r.stale(gen) {
		return statusRedirected
	}
	if g == nil {
		r.notifier.Modal(notify.ModalNotFound, "This graduation could not be found.")
		return statusModal
	}

	// The lock check precedes any roster fetch so locked pages do no
	// further I/O.
	if d := gate.CheckUpload(g, variant); !d.Allowed {
		recordLockedRejection(variant)
		r.notifier.Modal(notify.ModalLocked, "Uploads for this graduation are closed.")
		return statusModal
	}

	students, err := r.store.Students(ctx, g.ID)
	if err != nil {
		r.logger.Error("student roster fetch failed",
			"entity_id", g.ID, "error", err)
		recordTransportFailure()
		r.notifier.Modal(notify.ModalNotFound, "This graduation could not be found.")
		return statusModal
	}
	if r.stale(gen) {
		return statusRedirected
	}

	if variant == gate.LockPortal {
		r.renderer.RenderUploadPortal(g, students)
		return statusRendered
	}

	s, d := gate.MatchStudentLink(students, rt.Param(route.ParamLinkID))
	if !d.Allowed {
		r.notifier.Modal(notify.ModalInvalidLink, "This upload link is not valid.")
		return statusModal
	}
	r.renderer.RenderStudentUpload(g, *s)
	return statusRendered
}
