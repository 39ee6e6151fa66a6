package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for the session state machine. All of them are
// recoverable: they are reported to the requesting connection only and
// leave session state untouched.
var (
	// ErrPollActive is returned by CreatePoll while a prior poll's
	// countdown has not expired yet.
	ErrPollActive = errors.New("cannot create poll: previous poll is still active")

	// ErrNoActivePoll is returned by SubmitAnswer when no poll is open.
	ErrNoActivePoll = errors.New("no active poll")

	// ErrAlreadyAnswered is returned on a second submission by the same
	// participant for the same poll. The first answer stands.
	ErrAlreadyAnswered = errors.New("already answered this poll")

	// ErrNotFound is returned when an operation references an identity
	// that is not registered in the session.
	ErrNotFound = errors.New("participant not found")

	// ErrNotTeacher is returned when a student attempts a teacher-only
	// operation (create-poll, kick).
	ErrNotTeacher = errors.New("only the teacher can do that")
)

// ValidationError reports malformed create-poll or submit-answer input.
// The operation is aborted with no state change.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
