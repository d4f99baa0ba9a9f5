package ledger

import (
	"errors"
	"fmt"
)

// NotFoundError reports an operation against an unknown evidence ID.
type NotFoundError struct {
	EvidenceID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("evidence %q not found", e.EvidenceID)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(evidenceID string) *NotFoundError {
	return &NotFoundError{EvidenceID: evidenceID}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ArchivalError reports a failed archival. Archival is all-or-nothing: when
// this error is returned, nothing was stored.
type ArchivalError struct {
	Stage string // "hash", "encrypt", "store"
	Name  string // artifact name
	Cause error
}

// Error implements the error interface.
func (e *ArchivalError) Error() string {
	return fmt.Sprintf("archival failed [stage=%s, artifact=%s]: %v", e.Stage, e.Name, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ArchivalError) Unwrap() error {
	return e.Cause
}

// NewArchivalError creates a new ArchivalError.
func NewArchivalError(stage, name string, cause error) *ArchivalError {
	return &ArchivalError{Stage: stage, Name: name, Cause: cause}
}

// StorageError reports an error from a store backend.
type StorageError struct {
	Backend   string // "memory", "sqlite"
	Operation string // "put", "get", "update", etc.
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
