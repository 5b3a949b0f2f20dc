package session

import "github.com/dmitrijs2005/studycircle/internal/client/models"

// Reason names the operation that produced an Event.
type Reason string

const (
	ReasonRestore       Reason = "restore"
	ReasonSignUp        Reason = "sign_up"
	ReasonLogIn         Reason = "log_in"
	ReasonLogOut        Reason = "log_out"
	ReasonProfileUpdate Reason = "profile_update"
)

// Event is published after every committed change. Identity is nil when
// nobody is logged in. It is a copy; subscribers share it and must not
// modify it.
type Event struct {
	Identity *models.Identity
	Degraded bool
	Reason   Reason
}
