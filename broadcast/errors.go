package broadcast

import "errors"

var (
	// ErrNotFound means the broadcast module is not installed.
	ErrNotFound = errors.New("broadcast: module not installed")
	// ErrUnknownIdentity means the application id is not in the manifest.
	ErrUnknownIdentity = errors.New("broadcast: unknown application id")
	// ErrAccessDenied means the manifest could not be read or the
	// application could not be registered.
	ErrAccessDenied = errors.New("broadcast: access denied")
	// ErrResourceDisabled means a test application id is used without
	// the developer setup in place.
	ErrResourceDisabled = errors.New("broadcast: setup required for test application id")
	// ErrAlreadyInitialized is returned by Init/InitEx unless uninitialized.
	ErrAlreadyInitialized = errors.New("broadcast: already initialized")
	// ErrNotValidState is returned by operations requiring a running engine.
	ErrNotValidState = errors.New("broadcast: engine not initialized")
	// ErrInvalidParameter flags a nil callback or an empty title.
	ErrInvalidParameter = errors.New("broadcast: invalid parameter")
)
