package nav

import (
	"time"

	"github.com/gradbook-dev/gradbook/pkg/gate"
	"github.com/gradbook-dev/gradbook/pkg/store"
)

// Renderer is the rendering collaborator: pure view functions that accept
// resolved data and produce UI. The routers invoke them and never wait for
// a result.
type Renderer interface {
	// RenderLogin shows the sign-in view.
	RenderLogin()

	// RenderDashboard shows the actor's dashboard.
	RenderDashboard(actorID string)

	// RenderNewGraduation shows the creation form.
	RenderNewGraduation(actorID string)

	// RenderEditor shows the edit view for a graduation. Called once per
	// accepted realtime push.
	RenderEditor(g *store.Graduation)

	// RenderCollaborators updates the collaborator banner with the other
	// actors present on the active graduation.
	RenderCollaborators(otherActorIDs []string)

	// RenderPublicView shows the public celebration page.
	RenderPublicView(g *store.Graduation)

	// RenderPasswordPrompt shows the password prompt for a protected
	// public page, including gate state for lockout messaging.
	RenderPasswordPrompt(g *store.Graduation, state gate.State, attempts uint, lockedUntil time.Time)

	// RenderUploadPortal shows the general upload portal with the student
	// roster.
	RenderUploadPortal(g *store.Graduation, students []store.Student)

	// RenderStudentUpload shows the direct upload view for one student.
	RenderStudentUpload(g *store.Graduation, student store.Student)
}
