package user

import "errors"

var ErrEmailAlreadyExists = errors.New("email already exists")

const (
	MsgInvalidBody      = "Invalid request body"
	MsgMissingFields    = "Missing required fields"
	MsgInvalidAge       = "Invalid age"
	MsgInvalidYear      = "Invalid year_of_study_current"
	MsgPasswordTooShort = "Password must be at least 8 characters"
	MsgDescriptionLong  = "Description too long"
)

// ValidationError carries the message shown to the caller as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
