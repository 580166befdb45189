package session

import "errors"

var (
	// ErrMissingUserID indicates a required user id was absent.
	ErrMissingUserID = errors.New("user id is required")
	// ErrSessionEnded indicates a call reached a session that has been closed.
	ErrSessionEnded = errors.New("session ended")
)
