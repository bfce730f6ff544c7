package services

import (
	"errors"
	"fmt"
)

// Taxonomy sentinels. Authorization failures, unknown ids, wrong owners and
// wrong passwords all collapse into ErrNotFound so that callers cannot probe
// for existence.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrObjectNotFound is the expected control-flow signal for a missing
	// blob, distinct from other object-store failures.
	ErrObjectNotFound = errors.New("object not found")
)

// serviceError pairs a taxonomy kind with a caller-facing message.
type serviceError struct {
	kind error
	msg  string
}

func (e *serviceError) Error() string { return e.msg }
func (e *serviceError) Unwrap() error { return e.kind }

func notFound(msg string) error {
	return &serviceError{kind: ErrNotFound, msg: msg}
}

func invalidArgument(msg string) error {
	return &serviceError{kind: ErrInvalidArgument, msg: msg}
}

// StorageError wraps an object-store failure other than not-found.
// Surfaced to clients as a bad-gateway condition.
type StorageError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
