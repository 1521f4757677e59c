package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for a quiz id.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionCompleted is returned when a finished session is started or
	// finished again.
	ErrSessionCompleted = errors.New("quiz session already completed")
	// ErrRemoteUnavailable wraps every failure of the remote store: network,
	// configuration or schema.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrRemoteNotConfigured is returned when no remote store was set up.
	ErrRemoteNotConfigured = errors.New("remote store not configured")
	// ErrInvalidQuizType indicates an unknown quiz type.
	ErrInvalidQuizType = errors.New("invalid quiz type")
)

// ValidationError carries a message meant to be shown next to the form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
