package views

import (
	"errors"
	"strings"

	"github.com/a-h/templ"

	"github.com/dmitrijs2005/studycircle/internal/client/models"
)

const (
	LoginFailedText    = "Invalid email or password. Please try again."
	RegisterFailedText = "Failed to create an account. Please try again."
	ResetSentText      = "Check your inbox for a password reset link."
)

type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password []byte `json:"password" validate:"min=1"`
}

func (f *LoginForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	return models.ValidateStruct(f)
}

type RegisterForm struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password []byte `json:"password" validate:"min=1"`
}

func (f *RegisterForm) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	return models.ValidateStruct(f)
}

type ResetForm struct {
	Email string `json:"email" validate:"required,email"`
}

func (f *ResetForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	return models.ValidateStruct(f)
}

// ProfileForm is the profile editor, prefilled from the current identity.
type ProfileForm struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Bio       string `json:"bio"`
	Interests string `json:"interests"`
}

func ProfileFormFor(identity *models.Identity) ProfileForm {
	if identity == nil {
		return ProfileForm{}
	}
	return ProfileForm{
		Name:      identity.Name,
		Email:     identity.Email,
		Bio:       identity.Bio,
		Interests: identity.Interests,
	}
}

func (f *ProfileForm) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	return models.ValidateStruct(f)
}

// Update converts the form into a profile update that sets every field.
func (f ProfileForm) Update() models.ProfileUpdate {
	bio, interests := f.Bio, f.Interests
	return models.ProfileUpdate{
		Name:      f.Name,
		Email:     f.Email,
		Bio:       &bio,
		Interests: &interests,
	}
}

// FormErrors renders err inline: one line per invalid field for validation
// errors, fallback otherwise.
func FormErrors(err error, fallback string) templ.Component {
	var verr *models.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) == 0 {
		return banner("! ", fallback)
	}
	lines := make([]templ.Component, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		lines = append(lines, banner("! ", f.Field+": "+f.Message))
	}
	return templ.Join(lines...)
}
