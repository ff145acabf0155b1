package impact

import (
	"errors"
	"fmt"
)

type constError string

func (e constError) Error() string { return string(e) }

const (
	// ErrAggregateNotInitialized is returned by incremental updates when the
	// global aggregate row has never been created.
	ErrAggregateNotInitialized = constError("impact aggregate not initialized")

	// ErrUserNotFound is returned when a user ID names no user.
	ErrUserNotFound = constError("user not found")
)

// StorageError reports a failed data store operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ValidationError reports a rejected field on a disposal request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// storageErr wraps err as a *StorageError unless it is a domain sentinel the
// caller must see unchanged.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAggregateNotInitialized) || errors.Is(err, ErrUserNotFound) || IsStorageError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
