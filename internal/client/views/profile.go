package views

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/dmitrijs2005/studycircle/internal/client/models"
)

const (
	NoBioText        = "No bio provided yet."
	NoInterestsText  = "No interests specified yet."
	ProfileSavedText = "Profile updated successfully!"
)

// ProfilePageParams is the profile page state. A non-empty Redirect means
// the page must not be shown.
type ProfilePageParams struct {
	Redirect  Route
	Name      string
	Email     string
	Bio       string
	Interests string
	// Message and Error are the inline banners above the profile card.
	Message string
	Error   string
}

// ProfilePageFor builds the page for identity; nil redirects to login.
func ProfilePageFor(identity *models.Identity) ProfilePageParams {
	if identity == nil {
		return ProfilePageParams{Redirect: RouteLogin}
	}
	return ProfilePageParams{
		Name:      identity.Name,
		Email:     identity.Email,
		Bio:       identity.Bio,
		Interests: identity.Interests,
	}
}

func ProfilePage(p ProfilePageParams) templ.Component {
	if p.Redirect != "" {
		return line("Redirecting to " + string(p.Redirect))
	}
	return templ.Join(
		banner("* ", p.Message),
		banner("! ", p.Error),
		profileCard(p),
	)
}

func profileCard(p ProfilePageParams) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		out := &printer{w: w}
		out.println(p.Name)
		out.println(p.Email)
		out.println("")
		out.println("Bio")
		out.printf("  %s\n", orDefault(p.Bio, NoBioText))
		out.println("Interests")
		out.printf("  %s\n", orDefault(p.Interests, NoInterestsText))
		return out.err
	})
}

// banner is one prefixed status line, or nothing when text is empty.
func banner(prefix, text string) templ.Component {
	if text == "" {
		return templ.NopComponent
	}
	return line(prefix + text)
}

func line(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s+"\n")
		return err
	})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
