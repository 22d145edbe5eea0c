package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrQuizNotFound     = errors.New("quiz not found or inactive")
	ErrQuestionNotFound = errors.New("question not found")
	ErrResponseNotFound = errors.New("response not found")
	ErrAnswerNotFound   = errors.New("answer not found")

	// ErrRetakeNotAllowed is returned when a participant already has a
	// response for a quiz that forbids retakes.
	ErrRetakeNotAllowed = errors.New("retakes are not allowed for this quiz")

	// ErrAttemptLimitExceeded is returned when the participant has used up
	// the quiz's max_attempts allowance.
	ErrAttemptLimitExceeded = errors.New("maximum attempts reached for this quiz")

	// ErrConcurrencyConflict is returned when a concurrent submission raced
	// on the same (quiz, email, attempt) slot. The attempt is already
	// recorded; callers may retry the read side but not the write.
	ErrConcurrencyConflict = errors.New("attempt already recorded, retry not permitted")
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries all field-level failures of a submission or an
// authoring request. No state is persisted when one is returned.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// isUniqueViolation reports whether err is a uniqueness violation from the
// underlying store (postgres 23505 or the sqlite equivalent in tests).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
