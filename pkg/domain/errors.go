package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrArticleNotFound is returned when an article row does not exist.
var ErrArticleNotFound = errors.New("article not found")

// ErrNotAuthenticated is returned when an operation requires an owning
// user and the session has none.
var ErrNotAuthenticated = errors.New("must be logged in")

// ErrUnknownStep is returned when a step value is outside the sequence.
var ErrUnknownStep = errors.New("unknown workflow step")

// ErrNoMaterial is returned when a submission is attempted with no
// files, links or pasted content to deliver.
var ErrNoMaterial = errors.New("no material to submit")

// ErrUnsupportedStore is returned when the configured article store
// does not implement an optional capability such as news sources or
// transcriptions.
var ErrUnsupportedStore = errors.New("store does not support this operation")

// TransitionError carries the validator's rejection of a step change.
// The message is meant for the editor, not for logs.
type TransitionError struct {
	From    Step
	To      Step
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s rejected: %s", e.From, e.To, e.Message)
}

// IsTransitionError reports whether err is a validator rejection and,
// if so, returns it.
func IsTransitionError(err error) (*TransitionError, bool) {
	var te *TransitionError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
