// Package models defines the client-side data model: the Identity record
// mirrored to durable storage, profile updates and validation errors.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Identity is the durable record of the logged-in user. A current Identity
// always has a non-empty ID, Email and Name; Bio and Interests are optional
// and may be missing from stored records.
type Identity struct {
	ID        string `json:"id" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Bio       string `json:"bio,omitempty"`
	Interests string `json:"interests,omitempty"`
}

// Clone returns a copy that shares nothing with i. A nil receiver yields nil.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// Validate reports whether the identity is fully formed.
func (i *Identity) Validate() error {
	return ValidateStruct(i)
}

// Apply returns a copy of i with the update merged in. Name and Email are
// always replaced; Bio and Interests only when set in the update.
func (i Identity) Apply(u ProfileUpdate) Identity {
	i.Name = strings.TrimSpace(u.Name)
	i.Email = strings.TrimSpace(u.Email)
	if u.Bio != nil {
		i.Bio = *u.Bio
	}
	if u.Interests != nil {
		i.Interests = *u.Interests
	}
	return i
}

// ProfileUpdate carries the fields a profile edit may change. Nil optional
// fields leave the stored value untouched.
type ProfileUpdate struct {
	Name      string
	Email     string
	Bio       *string
	Interests *string
}

// DisplayNameFromEmail derives a display name from the local part of email.
// If the local part is empty the whole (trimmed) email is used.
func DisplayNameFromEmail(email string) string {
	email = strings.TrimSpace(email)
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	return local
}

// EncodeIdentity serializes i into the stored record format. Partial
// identities are rejected so they never reach storage.
func EncodeIdentity(i *Identity) ([]byte, error) {
	if i == nil {
		return nil, fmt.Errorf("encode identity: %w", ErrValidation)
	}
	if err := i.Validate(); err != nil {
		return nil, fmt.Errorf("encode identity: %w", err)
	}
	return json.Marshal(i)
}

// DecodeIdentity parses a stored record. Unknown fields are ignored and
// missing optional fields stay empty; a record missing a required field is
// an error.
func DecodeIdentity(b []byte) (*Identity, error) {
	var i Identity
	if err := json.Unmarshal(b, &i); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	if err := i.Validate(); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	return &i, nil
}
