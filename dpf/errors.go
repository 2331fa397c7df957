package dpf

import "errors"

var (
	// ErrInvalidQuery is returned by Gen when the requested index or
	// domain parameters are out of range.
	ErrInvalidQuery = errors.New("dpf: invalid query")
	// ErrProcessing covers every shape mismatch in evaluation or
	// (un)marshaling: wrong record count, wrong record width, truncated
	// blob. None of these are expected in correct operation; they signal
	// a malformed peer or a version skew between client and server.
	ErrProcessing = errors.New("dpf: processing failed")
)
