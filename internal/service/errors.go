package service

import (
	"errors"

	"github.com/mmynk/familyfund/internal/auth"
)

var (
	ErrAmountTooLow = errors.New("amount below minimum")
	ErrWeekNotOpen  = errors.New("week not open for submission")
	ErrAlreadyPaid  = errors.New("week already paid")
	ErrAllPaid      = errors.New("all weeks paid")
	ErrBadReceipt   = errors.New("receipt rejected")
)

// Messages shown after successful auth actions.
const (
	MsgSignedUp = "User created successfully."
	MsgLoggedIn = "Logged in successfully!"
)

// ValidationError is a rejected request with a message fit for the user.
// It unwraps to one of the sentinel errors above.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error, msg string) error {
	return &ValidationError{Err: err, Message: msg}
}

// UserMessage returns the text to show for err. Validation and auth errors
// have their own wording; anything else is a remote failure.
func UserMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, auth.ErrEmptyCredentials):
		return "Please enter both a username and a password."
	case errors.Is(err, auth.ErrUsernameExists):
		return "Username already exists. Please choose a different one."
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid username or password."
	default:
		return "Submission failed: " + err.Error()
	}
}
