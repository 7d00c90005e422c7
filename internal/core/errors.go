package core

import "errors"

var (
	// ErrRunExists is returned by StartRun when the run directory is already
	// present under the base directory.
	ErrRunExists = errors.New("run directory already exists")

	// ErrRunActive is returned by StartRun on an Observer that already
	// observes a run.
	ErrRunActive = errors.New("observer already has a run")

	// ErrRunNotStarted is returned by lifecycle calls made before StartRun.
	ErrRunNotStarted = errors.New("run not started")

	// ErrRunClosed is returned by lifecycle calls made after Finish or Close.
	ErrRunClosed = errors.New("run session is closed")

	// ErrEmptyContentType is returned when registering a handler under "".
	ErrEmptyContentType = errors.New("content type is empty")

	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("handler is nil")

	// ErrDuplicateContentType is returned when a content type is registered
	// twice.
	ErrDuplicateContentType = errors.New("content type already registered")

	// ErrContractViolation is returned when an artifact does not satisfy its
	// handler's input contract. Nothing is written in that case.
	ErrContractViolation = errors.New("artifact violates handler contract")
)
