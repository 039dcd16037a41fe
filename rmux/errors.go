package rmux

import "errors"

var (
	// ErrMethodMismatch is returned when the method in the request does not match
	// the method defined against the route.
	ErrMethodMismatch = errors.New("method is not allowed")

	// ErrNotFound is returned when no route match is found.
	ErrNotFound = errors.New("no matching route was found")

	// ErrInvalidHeader is returned when a header name or value contains
	// characters that are not allowed in an HTTP field.
	ErrInvalidHeader = errors.New("invalid header name or value")

	// ErrFileNotFound is returned when a file to be streamed does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrPermissionDenied is returned when a file to be streamed is not readable.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRouteNotFound is returned when a named route cannot be resolved.
	ErrRouteNotFound = errors.New("named route was not found")

	// ErrAlreadySent is returned when a second transmission is attempted
	// on a response that has already been sent.
	ErrAlreadySent = errors.New("response has already been sent")

	// ErrMacroNotFound is returned when an unregistered macro is invoked.
	ErrMacroNotFound = errors.New("macro was not found")
)
