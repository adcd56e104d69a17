package habits

import "github.com/julianstephens/tally/internal/validation"

// FormError is a failure shown inline on a habit screen. Error returns the
// user-facing message; the backend cause is kept for logging.
type FormError struct {
	Field   validation.Field
	Message string
	Err     error
}

func (e *FormError) Error() string {
	return e.Message
}

func (e *FormError) Unwrap() error { return e.Err }

// UserMessage returns the text to display.
func (e *FormError) UserMessage() string { return e.Message }

func formError(msg string, err error) *FormError {
	return &FormError{Message: msg, Err: err}
}
