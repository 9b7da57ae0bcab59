package document

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrForbidden       = errors.New("not the document owner")
	ErrVersionConflict = errors.New("revision version already taken")
	// ErrRevisionMismatch also matches ErrNotFound.
	ErrRevisionMismatch = fmt.Errorf("revision belongs to another document: %w", ErrNotFound)
)
