package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/studycircle/internal/client/session"
	"github.com/dmitrijs2005/studycircle/internal/client/views"
)

const (
	cancelWord = "cancel"
	clearWord  = "-"
)

// Profile shows the profile page, or the login redirect when logged out.
func (a *App) Profile(ctx context.Context) error {
	a.render(ctx, views.ProfilePage(views.ProfilePageFor(a.session.Current())))
	return nil
}

// Nav prints the navigation bar for the current session.
func (a *App) Nav(ctx context.Context) error {
	a.render(ctx, views.Navbar(views.NavbarFor(a.session.Current())))
	return nil
}

// EditProfile runs the profile editor. Invalid input or a failed save keeps
// the editor open with the entered values; typing "cancel" at the name
// prompt leaves it without saving.
func (a *App) EditProfile(ctx context.Context) error {
	if a.redirected(views.RouteProfile) {
		return session.ErrNotAuthenticated
	}

	form := views.ProfileFormFor(a.session.Current())
	for {
		a.println("Edit profile (Enter keeps a value, '-' clears bio or interests, 'cancel' stops)")

		next, cancelled, err := a.promptProfile(form)
		if err != nil {
			return err
		}
		if cancelled {
			a.println("Edit cancelled.")
			return nil
		}

		if err := next.Validate(); err != nil {
			a.render(ctx, views.FormErrors(err, ""))
			form = next
			continue
		}

		updated, err := a.session.UpdateProfile(ctx, next.Update())
		if errors.Is(err, session.ErrNotAuthenticated) {
			a.printf("Redirecting to %s\n", views.RouteLogin)
			return err
		}
		if err != nil {
			a.logger.Warn(ctx, "profile update failed", "error", err)
			a.render(ctx, views.FormErrors(err, err.Error()))
			if ctx.Err() != nil {
				return err
			}
			form = next
			continue
		}

		page := views.ProfilePageFor(updated)
		page.Message = views.ProfileSavedText
		a.render(ctx, views.ProfilePage(page))
		return nil
	}
}

func (a *App) promptProfile(cur views.ProfileForm) (views.ProfileForm, bool, error) {
	var next views.ProfileForm
	var err error

	if next.Name, err = getTextWithDefault(a.reader, "Name", cur.Name, a.out); err != nil {
		return next, false, err
	}
	if next.Name == cancelWord {
		return next, true, nil
	}
	if next.Email, err = getTextWithDefault(a.reader, "Email", cur.Email, a.out); err != nil {
		return next, false, err
	}
	if next.Bio, err = getTextWithDefault(a.reader, "Bio", cur.Bio, a.out); err != nil {
		return next, false, err
	}
	if next.Interests, err = getTextWithDefault(a.reader, "Interests (e.g. Programming, Mathematics, Physics)", cur.Interests, a.out); err != nil {
		return next, false, err
	}

	if next.Bio == clearWord {
		next.Bio = ""
	}
	if next.Interests == clearWord {
		next.Interests = ""
	}
	return next, false, nil
}
