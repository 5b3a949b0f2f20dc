package views

import "github.com/dmitrijs2005/studycircle/internal/client/models"

type Route string

const (
	RouteHome     Route = "/"
	RouteLogin    Route = "/login"
	RouteRegister Route = "/register"
	RouteProfile  Route = "/profile"

	// Links shown in the navbar that the terminal client does not serve.
	RouteMaterials Route = "/materials"
	RouteUpload    Route = "/upload"
	RoutePayment   Route = "/payment"
	RouteContact   Route = "/contact"
	RouteAbout     Route = "/about"
)

// Resolve applies the auth redirects to a navigation request: the profile
// needs an identity, while login and registration send a logged-in user to
// the profile.
func Resolve(r Route, identity *models.Identity) Route {
	switch r {
	case RouteProfile:
		if identity == nil {
			return RouteLogin
		}
	case RouteLogin, RouteRegister:
		if identity != nil {
			return RouteProfile
		}
	}
	return r
}
