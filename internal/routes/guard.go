package routes

import (
	"strings"

	"github.com/wolfeidau/photoshare/internal/models"
)

// Kind identifies a view.
type Kind int

const (
	KindUnknown Kind = iota
	KindRoot
	KindLogin
	KindRegister
	KindUserDetail
	KindUserPhotos
	KindUpload
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindLogin:
		return "login"
	case KindRegister:
		return "register"
	case KindUserDetail:
		return "user-detail"
	case KindUserPhotos:
		return "user-photos"
	case KindUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// IsPublic reports whether the view is meant for anonymous users.
func (k Kind) IsPublic() bool {
	return k == KindLogin || k == KindRegister
}

// IsProtected reports whether the view requires an authenticated session.
func (k Kind) IsProtected() bool {
	return k == KindUserDetail || k == KindUserPhotos || k == KindUpload
}

// Route is a view plus the subject user it is scoped to, if any.
type Route struct {
	Kind   Kind
	UserID string
}

func Login() Route               { return Route{Kind: KindLogin} }
func UserDetail(id string) Route { return Route{Kind: KindUserDetail, UserID: id} }
func PhotosOf(id string) Route   { return Route{Kind: KindUserPhotos, UserID: id} }
func Upload() Route              { return Route{Kind: KindUpload} }

// Path renders the route as a URL path.
func (r Route) Path() string {
	switch r.Kind {
	case KindLogin:
		return "/login-register"
	case KindRegister:
		return "/register"
	case KindUserDetail:
		return "/users/" + r.UserID
	case KindUserPhotos:
		return "/photos/" + r.UserID
	case KindUpload:
		return "/photo-upload"
	default:
		return "/"
	}
}

// Parse maps a URL path to a route. Paths that match nothing are KindUnknown.
func Parse(p string) Route {
	p = strings.TrimSuffix(strings.TrimSpace(p), "/")
	if p == "" {
		return Route{Kind: KindRoot}
	}

	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "login-register":
		return Route{Kind: KindLogin}
	case len(parts) == 1 && parts[0] == "register":
		return Route{Kind: KindRegister}
	case len(parts) == 1 && parts[0] == "photo-upload":
		return Route{Kind: KindUpload}
	case len(parts) == 2 && parts[0] == "users" && parts[1] != "":
		return Route{Kind: KindUserDetail, UserID: parts[1]}
	case len(parts) == 2 && parts[0] == "photos" && parts[1] != "":
		return Route{Kind: KindUserPhotos, UserID: parts[1]}
	}

	return Route{Kind: KindUnknown}
}

// CanEnter reports whether the requested view itself is rendered for the
// session. Public views are always enterable, protected ones only when
// authenticated. Root and unknown views never render themselves.
func CanEnter(kind Kind, session models.Session) bool {
	switch {
	case kind.IsPublic():
		return true
	case kind.IsProtected():
		return session.IsAuthenticated()
	default:
		return false
	}
}

// Decision is the outcome of resolving a route against a session.
type Decision struct {
	// Route is the view to render.
	Route Route

	// Redirected is set when the client should navigate to Route.Path(),
	// replacing the requested location.
	Redirected bool

	// Substituted is set when Route is rendered in place of the requested
	// view without changing location.
	Substituted bool
}

// Resolve decides which view to show for the requested route. It is pure.
func Resolve(requested Route, session models.Session) Decision {
	authenticated := session.IsAuthenticated()

	switch {
	case requested.Kind.IsPublic():
		if authenticated {
			return Decision{Route: UserDetail(session.UserID()), Redirected: true}
		}
		return Decision{Route: requested}

	case requested.Kind.IsProtected():
		if authenticated {
			return Decision{Route: requested}
		}
		return Decision{Route: Login(), Substituted: true}

	default:
		if authenticated {
			return Decision{Route: UserDetail(session.UserID()), Redirected: true}
		}
		return Decision{Route: Login(), Substituted: true}
	}
}

// Context is the top bar text for a route, such as "Photos of Alice Smith".
func Context(r Route, subject *models.User) string {
	if subject == nil {
		return ""
	}
	switch r.Kind {
	case KindUserDetail:
		return subject.FullName()
	case KindUserPhotos:
		return "Photos of " + subject.FullName()
	default:
		return ""
	}
}
