// Package common defines sentinel errors shared by the intake pipeline,
// the metadata repositories and the HTTP layer. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorInvalidRecord = errors.New("invalid file record")

	// ErrorInvalidTransition rejects a status write that breaks the state machine.
	ErrorInvalidTransition = errors.New("invalid status transition")

	// Service-level errors.
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Intake trigger errors. A malformed event fails the whole invocation.
	ErrorMalformedEvent = errors.New("malformed storage event")
)
