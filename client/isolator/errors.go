package isolator

import "errors"

var (
	// ErrUnknownContainer is returned by isolate/cleanup for a
	// container id with no prior update.
	ErrUnknownContainer = errors.New("isolator: unknown container")

	// ErrExhausted is returned by isolate when the submodular selector
	// placed no cores for a non-zero CPU request.
	ErrExhausted = errors.New("isolator: resource pool exhausted")
)
