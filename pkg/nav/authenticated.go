package nav

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gradbook-dev/gradbook/pkg/gate"
	"github.com/gradbook-dev/gradbook/pkg/notify"
	"github.com/gradbook-dev/gradbook/pkg/resolve"
	"github.com/gradbook-dev/gradbook/pkg/route"
	"github.com/gradbook-dev/gradbook/pkg/store"
	"github.com/gradbook-dev/gradbook/pkg/sub"
)

// AuthConfig wires an AuthRouter's collaborators.
type AuthConfig struct {
	Store       store.Store
	Resolver    *resolve.Resolver
	Coordinator *sub.Coordinator
	Renderer    Renderer
	Notifier    notify.Notifier

	// Public handles the publicly reachable routes when a signed-in actor
	// navigates to one. Optional; without it those routes redirect to the
	// dashboard.
	Public *PublicRouter

	// Logger falls back to slog.Default() when nil.
	Logger *slog.Logger
}

// AuthRouter dispatches routes that require a signed-in actor.
type AuthRouter struct {
	store    store.Store
	resolver *resolve.Resolver
	coord    *sub.Coordinator
	renderer Renderer
	notifier notify.Notifier
	public   *PublicRouter
	logger   *slog.Logger
}

// NewAuthRouter creates an AuthRouter.
func NewAuthRouter(cfg AuthConfig) *AuthRouter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthRouter{
		store:    cfg.Store,
		resolver: cfg.Resolver,
		coord:    cfg.Coordinator,
		renderer: cfg.Renderer,
		notifier: cfg.Notifier,
		public:   cfg.Public,
		logger:   logger,
	}
}

// Dispatch handles one fragment-change event for a signed-in (or absent)
// actor. An empty actorID means no one is signed in: the login view is
// rendered with no subscription side effects.
//
// Any panic during dispatch is recovered at this boundary and lands on the
// dashboard; the UI is never left on a loading state.
func (r *AuthRouter) Dispatch(ctx context.Context, fragment, actorID string) {
	rt := route.Parse(fragment)
	ctx, span := startDispatchSpan(ctx, rt)

	status := statusRendered
	var recovered any
	defer func() {
		if recovered = recover(); recovered != nil {
			status = statusError
			r.logger.Error("dispatch panicked",
				"route", string(rt.Name), "fragment", fragment,
				"actor_id", actorID, "panic", fmt.Sprint(recovered))
			r.coord.LeaveEditSession()
			r.renderer.RenderDashboard(actorID)
		}
		if status != statusDelegated {
			recordDispatch(rt.Name, status)
		}
		endDispatchSpan(span, status, recovered)
	}()

	if actorID == "" {
		r.renderer.RenderLogin()
		status = statusLogin
		return
	}

	switch rt.Name {
	case route.EditGraduation:
		status = r.dispatchEdit(ctx, rt, actorID)

	case route.NewGraduation:
		r.coord.LeaveEditSession()
		r.renderer.RenderNewGraduation(actorID)

	case route.PublicView, route.UploadPortal, route.DirectUpload, route.Login:
		// Signed-in actors can still open public links; #/login for a
		// signed-in actor redirects home.
		if r.public != nil {
			r.public.Dispatch(ctx, fragment, actorID)
			status = statusDelegated
			return
		}
		r.redirectToDashboard(actorID)
		status = statusRedirected

	default: // Dashboard and everything that fell back to it.
		r.coord.LeaveEditSession()
		r.renderer.RenderDashboard(actorID)
	}
}

// dispatchEdit enters the edit session for a graduation. The subscription
// callback re-validates authorization on every push, because editor
// membership can change while subscribed.
func (r *AuthRouter) dispatchEdit(ctx context.Context, rt route.Route, actorID string) string {
	id, err := r.resolver.Resolve(ctx, rt.Param(route.ParamGradID))
	if err != nil {
		// Already logged with transport context by the resolver; the
		// user-visible outcome degrades to unresolved.
		recordTransportFailure()
	}
	if id == "" {
		r.redirectToDashboard(actorID)
		return statusRedirected
	}

	r.coord.EnterEditSession(id, actorID,
		func(g *store.Graduation) {
			d := gate.CheckEdit(g, actorID)
			if d.Allowed {
				r.renderer.RenderEditor(g)
				return
			}
			switch d.Reason {
			case gate.ReasonNotFound:
				r.logger.Info("graduation disappeared mid-session",
					"entity_id", id, "actor_id", actorID)
				r.notifier.Notice(notify.LevelError, "This graduation no longer exists.")
			case gate.ReasonRemoved:
				r.logger.Info("actor removed mid-session",
					"entity_id", id, "actor_id", actorID)
				r.notifier.Notice(notify.LevelWarning,
					"You no longer have access to this graduation.")
			}
			r.redirectToDashboard(actorID)
		},
		func(others []string) {
			r.renderer.RenderCollaborators(others)
		})
	return statusRendered
}

// redirectToDashboard tears down any edit session and lands on the
// dashboard.
func (r *AuthRouter) redirectToDashboard(actorID string) {
	r.coord.LeaveEditSession()
	r.renderer.RenderDashboard(actorID)
}
