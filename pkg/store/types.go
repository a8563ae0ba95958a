package store

import "time"

// Graduation is a celebration page: the entity every route in the system
// navigates around.
type Graduation struct {
	// ID is the canonical opaque identifier.
	ID string `json:"id"`

	// Slug is the optional human-readable alternate identifier
	// (e.g. "smith-family-2026").
	Slug string `json:"slug,omitempty"`

	// Title is the display title of the page.
	Title string `json:"title"`

	// OwnerID is the legacy single-owner field. Pages created before
	// editor sets existed carry only this; it still grants edit access.
	OwnerID string `json:"ownerId,omitempty"`

	// EditorIDs is the set of actors allowed to edit the page.
	EditorIDs []string `json:"editorIds,omitempty"`

	// IsLocked closes submissions: both upload routes reject while set.
	IsLocked bool `json:"isLocked,omitempty"`

	// PasswordHash gates the public view when non-empty. The hash is
	// compared server-side; the core never sees plaintext passwords of
	// the stored secret.
	PasswordHash string `json:"passwordHash,omitempty"`

	// Students are the student records, in display order.
	Students []Student `json:"students,omitempty"`

	// UpdatedAt is the last modification time.
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Student is one student's record on a graduation page.
type Student struct {
	// ID identifies the student within the graduation.
	ID string `json:"id"`

	// Name is the student's display name.
	Name string `json:"name"`

	// UniqueLinkToken is the token embedded in the student's direct
	// upload link. Exact match is required; there is no fallback.
	UniqueLinkToken string `json:"uniqueLinkToken"`
}

// clone returns a deep copy so callers can never mutate store state
// through a returned pointer.
func (g *Graduation) clone() *Graduation {
	if g == nil {
		return nil
	}
	out := *g
	out.EditorIDs = append([]string(nil), g.EditorIDs...)
	out.Students = append([]Student(nil), g.Students...)
	return &out
}
