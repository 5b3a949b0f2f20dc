package views

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/dmitrijs2005/studycircle/internal/client/models"
)

const Brand = "Study Circle"

// Link is a navbar entry. An empty Route marks an action (Logout).
type Link struct {
	Label string
	Route Route
}

type NavbarParams struct {
	Links   []Link
	Account []Link
}

// NavbarFor builds the navbar for identity (nil when logged out).
func NavbarFor(identity *models.Identity) NavbarParams {
	p := NavbarParams{
		Links: []Link{
			{Label: "Home", Route: RouteHome},
			{Label: "Materials", Route: RouteMaterials},
		},
	}
	if identity != nil {
		p.Links = append(p.Links, Link{Label: "Upload Material", Route: RouteUpload})
	}
	p.Links = append(p.Links,
		Link{Label: "Payment", Route: RoutePayment},
		Link{Label: "Contact", Route: RouteContact},
		Link{Label: "About", Route: RouteAbout},
	)

	if identity == nil {
		p.Account = []Link{
			{Label: "Login", Route: RouteLogin},
			{Label: "Register", Route: RouteRegister},
		}
		return p
	}

	name := identity.Name
	if name == "" {
		name = "Profile"
	}
	p.Account = []Link{
		{Label: name, Route: RouteProfile},
		{Label: "Logout"},
	}
	return p
}

// Navbar renders p on one line: brand, site links, then account links.
func Navbar(p NavbarParams) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		out := &printer{w: w}
		out.printf("%s | %s || %s\n", Brand, labels(p.Links), labels(p.Account))
		return out.err
	})
}

func labels(links []Link) string {
	parts := make([]string, 0, len(links))
	for _, l := range links {
		parts = append(parts, l.Label)
	}
	return strings.Join(parts, " | ")
}
