package fitsync

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for callers that render it.
type Kind string

const (
	KindNone             Kind = ""
	KindNotAuthenticated Kind = "not_authenticated"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindInvalid          Kind = "invalid"
	KindRemoteFailure    Kind = "remote_failure"
	KindDegraded         Kind = "degraded"
	KindCanceled         Kind = "canceled"
)

// Accessor errors.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalid          = errors.New("invalid input")
	ErrClosed           = errors.New("accessor is closed")
)

// CodeNoRows is the store's code for a single-row request that matched
// nothing. It marks a legitimately absent record, not a failure.
const CodeNoRows = "PGRST116"

// RemoteError is a failure reported by the remote store. Message is shown to
// users unchanged.
type RemoteError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`

	// Cause is the underlying failure, if any. It is not serialized.
	Cause error `json:"-"`
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Unwrap() error { return e.Cause }

// IsNoRows reports whether err is the store's "no matching row" sentinel.
func IsNoRows(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Code == CodeNoRows
}

// KindOf maps err onto the error taxonomy.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotAuthenticated):
		return KindNotAuthenticated
	case errors.Is(err, ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrInvalid):
		return KindInvalid
	case errors.Is(err, ErrNotFound), IsNoRows(err):
		return KindNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, ErrClosed):
		return KindCanceled
	default:
		return KindRemoteFailure
	}
}

func alreadyExists(what, id string) error {
	return fmt.Errorf("%s %q: %w", what, id, ErrAlreadyExists)
}
