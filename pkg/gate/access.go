package gate

import "github.com/gradbook-dev/gradbook/pkg/store"

// Reason explains a denied (or password-pending) access decision.
type Reason string

const (
	ReasonOwnerOnly        Reason = "owner_only"
	ReasonRemoved          Reason = "removed"
	ReasonLocked           Reason = "locked"
	ReasonNotFound         Reason = "not_found"
	ReasonInvalidLink      Reason = "invalid_link"
	ReasonPasswordRequired Reason = "password_required"
)

// LockVariant distinguishes which upload route hit a locked graduation.
// The user-visible outcome is identical; the variant exists for logs and
// metrics.
type LockVariant string

const (
	LockPortal     LockVariant = "portal"
	LockDirectLink LockVariant = "direct_link"
)

// Decision is the transient result of an access check. Computed fresh per
// subscription callback or dispatch, never persisted.
type Decision struct {
	Allowed bool
	Reason  Reason

	// LockVariant is set only when Reason is ReasonLocked.
	LockVariant LockVariant
}

func allowed() Decision {
	return Decision{Allowed: true}
}

func denied(reason Reason) Decision {
	return Decision{Reason: reason}
}

// CanEdit reports whether the actor may edit the graduation: present in
// the editor set OR equal to the legacy single owner. Pages created before
// editor sets existed carry only OwnerID, so the dual check is a
// backward-compatibility requirement.
func CanEdit(g *store.Graduation, actorID string) bool {
	if g == nil || actorID == "" {
		return false
	}
	for _, id := range g.EditorIDs {
		if id == actorID {
			return true
		}
	}
	return g.OwnerID != "" && g.OwnerID == actorID
}

// CheckEdit gates the edit route. Re-run on every realtime push, because
// editor membership can change while subscribed.
func CheckEdit(g *store.Graduation, actorID string) Decision {
	if g == nil {
		return denied(ReasonNotFound)
	}
	if !CanEdit(g, actorID) {
		return denied(ReasonRemoved)
	}
	return allowed()
}

// CheckUpload gates both upload-class routes. A locked graduation rejects
// regardless of identity or link validity, so this runs before any student
// fetch and before the link check.
func CheckUpload(g *store.Graduation, variant LockVariant) Decision {
	if g == nil {
		return denied(ReasonNotFound)
	}
	if g.IsLocked {
		d := denied(ReasonLocked)
		d.LockVariant = variant
		return d
	}
	return allowed()
}

// MatchStudentLink finds the student whose assigned unique link token
// exactly matches the supplied one. No match is an invalid link, never a
// not-found: the graduation exists, the link doesn't.
func MatchStudentLink(students []store.Student, linkToken string) (*store.Student, Decision) {
	if linkToken == "" {
		return nil, denied(ReasonInvalidLink)
	}
	for i := range students {
		if students[i].UniqueLinkToken == linkToken {
			return &students[i], allowed()
		}
	}
	return nil, denied(ReasonInvalidLink)
}

// NeedsPassword reports whether the public view of a graduation is gated.
func NeedsPassword(g *store.Graduation) bool {
	return g != nil && g.PasswordHash != ""
}
