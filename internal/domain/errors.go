package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the kind shared by every missing-entity error.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is the kind shared by every rejected request payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorage is the kind of every failure reported by a storage collaborator.
	ErrStorage = errors.New("storage failure")
	// ErrNoAttempts is returned when a comparison is requested without history.
	ErrNoAttempts = errors.New("no attempts found for this test")
	// ErrForbidden is returned when a user reads an attempt that is not theirs.
	ErrForbidden = errors.New("not authorized to access this attempt")
)

var (
	ErrTestNotFound    = fmt.Errorf("test %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrAttemptNotFound = fmt.Errorf("attempt %w", ErrNotFound)

	ErrInvalidTime         = fmt.Errorf("%w: invalid time taken", ErrInvalidInput)
	ErrInvalidAnswerFormat = fmt.Errorf("%w: invalid answers format", ErrInvalidInput)
	ErrInvalidLimit        = fmt.Errorf("%w: limit must be a positive integer", ErrInvalidInput)
	ErrInvalidTest         = fmt.Errorf("%w: invalid test definition", ErrInvalidInput)
)

// StorageError wraps a collaborator failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// WrapStorage classifies err as a storage failure unless it already carries a
// domain kind. A nil err stays nil.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrNotFound, ErrInvalidInput, ErrStorage, ErrNoAttempts, ErrForbidden} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return &StorageError{Op: op, Err: err}
}
