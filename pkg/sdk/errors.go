package venuedex

import "github.com/kailas-cloud/venuedex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput       = domain.ErrInvalidInput
	ErrNotFound           = domain.ErrNotFound
	ErrBackendUnavailable = domain.ErrBackendUnavailable
	ErrDocumentInvalid    = domain.ErrDocumentInvalid
)

// InputError names the rejected query field and the violated constraint.
// Use errors.As() to inspect it.
type InputError = domain.InputError
