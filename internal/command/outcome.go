package command

import (
	"errors"
	"fmt"

	"github.com/mschirtzinger/todosync/internal/api"
	"github.com/mschirtzinger/todosync/internal/schema"
)

// ErrBatchDependency is returned when an intent in a batch references the
// temporary id of an add earlier in the same batch.
var ErrBatchDependency = errors.New("batch intent depends on a temporary id from the same batch")

// FailureClass classifies why a command failed.
type FailureClass string

const (
	FailureNone         FailureClass = ""
	FailureTransport    FailureClass = "transport"
	FailureUnauthorized FailureClass = "unauthorized"
	FailureRateLimited  FailureClass = "rate_limited"
	FailureRejected     FailureClass = "rejected"
)

// Outcome is the result of one intent.
type Outcome struct {
	Intent  Intent         `json:"intent"`
	Command schema.Command `json:"command"`

	// ID is the entity id after reconciliation: the server id for adds.
	ID string `json:"id"`

	// Cursor is the cursor returned with the response.
	Cursor string `json:"cursor,omitempty"`

	Failure FailureClass `json:"failure,omitempty"`
	Err     error        `json:"-"`
}

// OK reports whether the server accepted the command.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Classify maps an error to its failure class.
func Classify(err error) FailureClass {
	if err == nil {
		return FailureNone
	}
	var rl *api.RateLimitError
	var cmdErr *api.CommandError
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return FailureUnauthorized
	case errors.As(err, &rl):
		return FailureRateLimited
	case errors.As(err, &cmdErr):
		if cmdErr.Unauthorized() {
			return FailureUnauthorized
		}
		return FailureRejected
	}
	return FailureTransport
}

// Notification is a user-visible failure message.
type Notification struct {
	Title   string       `json:"title"`
	Message string       `json:"message"`
	Class   FailureClass `json:"class"`
}

// Notifier surfaces failures to the user.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// FailureNotification builds the message for a failed outcome. Authorization
// failures get their own copy: the fix is re-authenticating, not retrying.
func FailureNotification(o Outcome) Notification {
	n := Notification{
		Title: "Unable to " + o.Intent.Title(),
		Class: o.Failure,
	}
	switch o.Failure {
	case FailureUnauthorized:
		n.Title = "Authorization failed"
		n.Message = fmt.Sprintf("The service rejected your API token while trying to %s. Update api_token and sign in again.", o.Intent.Title())
	case FailureRateLimited:
		var rl *api.RateLimitError
		if errors.As(o.Err, &rl) {
			n.Message = fmt.Sprintf("Too many requests; try again in %s.", rl.RetryAfter)
		}
	default:
		if o.Err != nil {
			n.Message = o.Err.Error()
		}
	}
	return n
}
