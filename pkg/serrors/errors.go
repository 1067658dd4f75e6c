package serrors

import "fmt"

// BaseError is a coded error shared across service boundaries. Code is a
// stable machine-readable identifier, Message a human-readable summary and
// Hint an optional remediation note.
type BaseError struct {
	Code    string
	Message string
	Hint    string
}

func NewError(code, message, hint string) *BaseError {
	return &BaseError{Code: code, Message: message, Hint: hint}
}

func (e *BaseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithHint returns a copy carrying a request-specific hint. The original
// sentinel stays untouched so errors.Is comparisons keep working.
func (e *BaseError) WithHint(hint string) *BaseError {
	return &BaseError{Code: e.Code, Message: e.Message, Hint: hint}
}

func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
