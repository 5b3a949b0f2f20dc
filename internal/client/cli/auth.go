package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/studycircle/internal/client/models"
	"github.com/dmitrijs2005/studycircle/internal/client/views"
	"github.com/dmitrijs2005/studycircle/internal/common"
)

// getSimpleText, getTextWithDefault and getPassword are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText      = GetSimpleText
	getTextWithDefault = GetTextWithDefault
	getPassword        = GetPassword
)

// Register prompts for name, email and password and signs up. On success
// the profile page is shown; on failure the form errors are printed inline.
// The password is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	if a.redirected(views.RouteRegister) {
		return a.Profile(ctx)
	}

	var f views.RegisterForm
	var err error
	if f.Name, err = getSimpleText(a.reader, "Enter name", a.out); err != nil {
		return err
	}
	if f.Email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
		return err
	}
	if f.Password, err = getPassword(a.reader, a.out); err != nil {
		return err
	}
	defer common.WipeByteArray(f.Password)

	if err := f.Validate(); err != nil {
		a.render(ctx, views.FormErrors(err, views.RegisterFailedText))
		return err
	}

	a.println("Creating account...")
	if _, err := a.session.SignUp(ctx, f.Email, f.Password, f.Name); err != nil {
		a.logger.Warn(ctx, "sign-up failed", "error", err)
		a.render(ctx, views.FormErrors(err, views.RegisterFailedText))
		return err
	}
	return a.Profile(ctx)
}

// Login prompts for credentials and logs in, then shows the profile page.
func (a *App) Login(ctx context.Context) error {
	if a.redirected(views.RouteLogin) {
		return a.Profile(ctx)
	}

	var f views.LoginForm
	var err error
	if f.Email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
		return err
	}
	if f.Password, err = getPassword(a.reader, a.out); err != nil {
		return err
	}
	defer common.WipeByteArray(f.Password)

	if err := f.Validate(); err != nil {
		a.render(ctx, views.FormErrors(err, views.LoginFailedText))
		return err
	}

	a.println("Logging in...")
	if _, err := a.session.LogIn(ctx, f.Email, f.Password); err != nil {
		a.logger.Warn(ctx, "login failed", "error", err)
		a.render(ctx, views.FormErrors(err, views.LoginFailedText))
		return err
	}
	return a.Profile(ctx)
}

// Logout ends the session. It never fails from the user's point of view.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.LogOut(ctx); err != nil {
		a.logger.Error(ctx, "logout failed", "error", err)
	}
	a.println("Logged out.")
	return nil
}

// ResetPassword asks for an email and requests a reset notification.
func (a *App) ResetPassword(ctx context.Context) error {
	def := ""
	if cur := a.session.Current(); cur != nil {
		def = cur.Email
	}

	var f views.ResetForm
	var err error
	if f.Email, err = getTextWithDefault(a.reader, "Enter email", def, a.out); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		a.render(ctx, views.FormErrors(err, ""))
		return err
	}

	a.println("Sending reset link...")
	if err := a.session.ResetPassword(ctx, f.Email); err != nil {
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			a.logger.Warn(ctx, "password reset failed", "error", err)
		}
		a.render(ctx, views.FormErrors(err, "Could not send the reset link. Please try again."))
		return err
	}
	a.println(views.ResetSentText)
	return nil
}

// redirected reports whether route r is not available in the current state
// and announces the redirect.
func (a *App) redirected(r views.Route) bool {
	to := views.Resolve(r, a.session.Current())
	if to == r {
		return false
	}
	a.printf("Redirecting to %s\n", to)
	return true
}
