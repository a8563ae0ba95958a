package route

import "strings"

// Name identifies one of the recognized navigation targets.
type Name string

const (
	Dashboard      Name = "dashboard"
	EditGraduation Name = "edit"
	NewGraduation  Name = "new"
	PublicView     Name = "view"
	UploadPortal   Name = "upload"
	DirectUpload   Name = "upload_direct"
	Login          Name = "login"
)

// Param keys used by the parameterized route kinds.
const (
	ParamGradID = "gradId"
	ParamLinkID = "linkId"
)

// Route is the structured classification of a navigation fragment.
// It is immutable once constructed: created per navigation event and
// discarded after dispatch.
type Route struct {
	// Name is the route kind. Always one of the enumerated values.
	Name Name

	// Params holds the extracted route parameters (gradId, linkId).
	Params map[string]string

	// Fragment is the raw fragment the route was parsed from.
	Fragment string
}

// Param returns the named parameter, or "" if absent.
func (r Route) Param(key string) string {
	return r.Params[key]
}

// Parse classifies a fragment into a Route.
//
// Empty, absent, or unrecognized fragments resolve to Dashboard. This is a
// deliberate fallback, not an error: the dashboard is the safe default for
// anything the codec cannot place.
func Parse(fragment string) Route {
	dashboard := Route{Name: Dashboard, Params: map[string]string{}, Fragment: fragment}

	raw := strings.TrimPrefix(fragment, "#")
	raw = strings.TrimPrefix(raw, "/")
	if raw == "" {
		return dashboard
	}

	segments := strings.Split(raw, "/")
	switch segments[0] {
	case "dashboard":
		if len(segments) == 1 {
			return dashboard
		}

	case "new":
		if len(segments) == 1 {
			return Route{Name: NewGraduation, Params: map[string]string{}, Fragment: fragment}
		}

	case "login":
		if len(segments) == 1 {
			return Route{Name: Login, Params: map[string]string{}, Fragment: fragment}
		}

	case "edit":
		if len(segments) == 2 && segments[1] != "" {
			return Route{
				Name:     EditGraduation,
				Params:   map[string]string{ParamGradID: segments[1]},
				Fragment: fragment,
			}
		}

	case "view":
		if len(segments) == 2 && segments[1] != "" {
			return Route{
				Name:     PublicView,
				Params:   map[string]string{ParamGradID: segments[1]},
				Fragment: fragment,
			}
		}

	case "upload":
		// A second segment after the id distinguishes a student's direct
		// link from the general portal.
		if len(segments) == 2 && segments[1] != "" {
			return Route{
				Name:     UploadPortal,
				Params:   map[string]string{ParamGradID: segments[1]},
				Fragment: fragment,
			}
		}
		if len(segments) == 3 && segments[1] != "" && segments[2] != "" {
			return Route{
				Name:     DirectUpload,
				Params:   map[string]string{ParamGradID: segments[1], ParamLinkID: segments[2]},
				Fragment: fragment,
			}
		}
	}

	return dashboard
}

// Generate serializes a route name and parameters back into a fragment.
// It is the inverse of Parse for the six non-default kinds; unknown names
// fall back to the dashboard fragment.
func Generate(name Name, params map[string]string) string {
	switch name {
	case NewGraduation:
		return "#/new"
	case Login:
		return "#/login"
	case EditGraduation:
		return "#/edit/" + params[ParamGradID]
	case PublicView:
		return "#/view/" + params[ParamGradID]
	case UploadPortal:
		return "#/upload/" + params[ParamGradID]
	case DirectUpload:
		return "#/upload/" + params[ParamGradID] + "/" + params[ParamLinkID]
	default:
		return "#/dashboard"
	}
}
