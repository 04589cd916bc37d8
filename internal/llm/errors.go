package llm

import "errors"

// ErrEmptyResponse reports a completion that came back with no content.
var ErrEmptyResponse = errors.New("llm: empty response from model")

// PermanentError indicates a failure that will not resolve with retries:
// bad credentials, invalid request, context length exceeded.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// TransientError indicates a rate-limit or connectivity failure worth
// retrying with backoff.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

func NewTransientError(err error) error {
	return &TransientError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError anywhere in
// its chain.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
