package assetops

import (
	"errors"
	"fmt"

	"github.com/atelierhq/assetgate/src/metastore"
)

type ErrorKind int

const (
	// Input rejected before any remote call was made.
	KindInvalidInput ErrorKind = iota
	// A read-path lookup missed; nothing was changed.
	KindNotFound
	// The owner record's id does not match the path-derived id.
	KindIDMismatch
	// The metadata service said "not ok". No compensation was needed: either
	// nothing had happened yet, or the failure was itself the diagnosis.
	KindMetadataFailed
	// The object store failed after a successful metadata write. Compensated
	// tells whether the metadata rollback went through; if it did not, the
	// stores are inconsistent until someone reconciles them by hand.
	KindObjectFailed
)

// Error is the result type for every coordinator operation that goes wrong.
// For KindMetadataFailed, Status and Body carry the metadata service's
// response verbatim so the HTTP layer can forward it unmodified.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error

	Status int
	Body   string

	Compensated     bool
	CompensationErr error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalidInput(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func idMismatch(format string, args ...interface{}) *Error {
	return &Error{Kind: KindIDMismatch, Msg: fmt.Sprintf(format, args...)}
}

// objectFailed wraps an object-store failure. The original error is always
// the surfaced one; the compensation outcome rides along.
func objectFailed(err error, compensated bool, compensationErr error) *Error {
	return &Error{
		Kind:            KindObjectFailed,
		Msg:             "object store write failed",
		Err:             err,
		Compensated:     compensated,
		CompensationErr: compensationErr,
	}
}

// fromMetaErr classifies an error coming back from the metadata store.
func fromMetaErr(err error, what string) *Error {
	if errors.Is(err, metastore.ErrNotFound) {
		return notFound("%s not found", what)
	}
	var reqErr *metastore.RequestError
	if errors.As(err, &reqErr) {
		return &Error{
			Kind:   KindMetadataFailed,
			Msg:    fmt.Sprintf("metadata call for %s failed", what),
			Err:    err,
			Status: reqErr.Status,
			Body:   reqErr.Body,
		}
	}
	return &Error{
		Kind: KindMetadataFailed,
		Msg:  fmt.Sprintf("metadata call for %s failed", what),
		Err:  err,
	}
}
