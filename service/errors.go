package service

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that the referenced file object does not exist in the
// metadata store or the blob store.
var ErrNotFound = errors.New("file object not found")

// StorageError marks a transient collaborator failure (blob store or
// metadata store unreachable) as opposed to a client-caused validation error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
