// Package errors defines application-specific error types and sentinel errors.
package errors

import (
	"errors"
	"fmt"

	"github.com/jittakal/eventtabstore/pkg/message"
)

// Sentinel errors for common conditions.
var (
	ErrConsumerClosed = errors.New("consumer is closed")
	ErrSinkClosed     = errors.New("sink is closed")
	ErrEmptyTable     = errors.New("aggregated table has no columns")
	ErrInvalidRouting = errors.New("invalid routing")
	ErrConnectionLost = errors.New("connection lost")
)

// GroupError represents a failure while building or writing one group's
// segments. It is group-local: other groups in the batch proceed.
type GroupError struct {
	Key   message.RouteKey
	Stage string
	Err   error
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("group error: route=%s stage=%s: %v", e.Key, e.Stage, e.Err)
}

func (e *GroupError) Unwrap() error {
	return e.Err
}

// StorageError represents a sink operation failure.
type StorageError struct {
	Backend   string
	Operation string
	Path      string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: backend=%s operation=%s path=%s: %v",
		e.Backend, e.Operation, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsRetryable determines if a StorageError is retryable based on the
// operation type.
func (e *StorageError) IsRetryable() bool {
	return e.Operation == "upload" || e.Operation == "ensure_destination"
}

// Retryable defines an interface for errors that can indicate if they are
// retryable.
type Retryable interface {
	error
	IsRetryable() bool
}

// IsRetryable checks if an error is retryable. It first checks if the
// error implements the Retryable interface, then falls back to sentinel
// errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryable Retryable
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	return errors.Is(err, ErrConnectionLost)
}
