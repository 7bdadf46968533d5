package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoQuestions is returned when a quiz has no questions to play.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrSessionNotFound is returned when a play session does not exist or was torn down.
	ErrSessionNotFound = errors.New("play session not found")
	// ErrSessionFinished is returned for actions on an already submitted session.
	ErrSessionFinished = errors.New("play session already submitted")
	// ErrQuestionIndex indicates an answer for a question outside the quiz.
	ErrQuestionIndex = errors.New("question index out of range")
	// ErrInvalidOption indicates an option other than A-D.
	ErrInvalidOption = errors.New("option must be one of A, B, C, D")
	// ErrForbidden is returned when a user acts on something they do not own.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated is returned when no valid session is present.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrInvalidCredentials is returned for a wrong email or password.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrEmailTaken is returned on sign-up with a registered email.
	ErrEmailTaken = errors.New("user already registered")
	// ErrNotAdmin is returned when an admin sign-in resolves to a non-admin user.
	ErrNotAdmin = errors.New("You are not authorized to access the admin console.")
	// ErrProfileNotFound is returned when a user has no profile row.
	ErrProfileNotFound = errors.New("profile not found")
)

// ValidationError carries a user-facing message about rejected input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid builds a ValidationError from a format string.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
