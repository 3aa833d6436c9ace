// Provides the state store error taxonomy. Every error here matches
// ErrStateStore with errors.Is, so callers need not know which variant
// or which physical engine produced it.
package orchestra_errors

import "errors"

var ErrStateStore = errors.New("orchestra: state store")

type kindError struct {
	msg string
}

func (e *kindError) Error() string {
	return "orchestra: " + e.msg
}

func (e *kindError) Is(target error) bool {
	return target == ErrStateStore
}

func kind(msg string) error {
	return &kindError{msg: msg}
}

var (
	ErrBadRecno        = kind("recno out of range")
	ErrUpdate          = kind("update rejected")
	ErrAlreadyPrepared = kind("update already prepared")
	ErrPrepareMismatch = kind("value no longer present")
	ErrFlatten         = kind("more than two updates for a key in one round")
	ErrBackend         = kind("backend failure")
	ErrBadEncoding     = kind("bad encoding")
	ErrUnknownRelation = kind("unknown relation")
	ErrNoSuchElement   = kind("no such element")
	ErrIteratorClosed  = kind("iterator closed")
	ErrConcurrentWrite = kind("concurrent writer on the same store")
)

type backendError struct {
	msg   string
	cause error
}

func (e *backendError) Error() string {
	return "orchestra: backend: " + e.msg + ": " + e.cause.Error()
}

func (e *backendError) Unwrap() []error {
	return []error{ErrBackend, e.cause}
}

// Backend wraps a physical engine failure. The result matches both
// ErrBackend and the original cause.
func Backend(cause error, msg string) error {
	if cause == nil {
		return nil
	}
	return &backendError{msg: msg, cause: cause}
}
