package manager

// tooBusyError signals that the evaluation slot could not be acquired in time (429).
type tooBusyError struct{ wait string }

func (e tooBusyError) Error() string { return "too busy: another evaluation is running (waited " + e.wait + ")" }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// invalidRequestError marks caller mistakes such as an empty image or model list.
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return "invalid request: " + e.msg }

// ErrInvalidRequest constructs an invalidRequestError.
func ErrInvalidRequest(msg string) error { return invalidRequestError{msg: msg} }

// IsInvalidRequest reports whether err is a caller mistake (return 400).
func IsInvalidRequest(err error) bool {
	_, ok := err.(invalidRequestError)
	return ok
}

// modelNotFoundError is returned when a single-model request names a model
// outside the configured list.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates an unknown model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// backendUnavailableError wraps a failed backend query so the HTTP layer can
// return 502 instead of 500.
type backendUnavailableError struct{ err error }

func (e backendUnavailableError) Error() string { return "backend unavailable: " + e.err.Error() }
func (e backendUnavailableError) Unwrap() error { return e.err }

// IsBackendUnavailable reports whether err came from an unreachable backend.
func IsBackendUnavailable(err error) bool {
	_, ok := err.(backendUnavailableError)
	return ok
}
