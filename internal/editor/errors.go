package editor

import (
	"errors"
	"fmt"

	"digitalroom/pkg/domain"
)

// Op names a remote operation tracked by an in-flight flag.
type Op string

const (
	OpLoad   Op = "load"
	OpSave   Op = "save"
	OpDelete Op = "delete"
	OpUpload Op = "upload"
)

var (
	// ErrBusy rejects a submission while the same operation is in flight.
	ErrBusy = errors.New("editor: operation already in flight")
	// ErrNoDraft is returned by draft operations while browsing.
	ErrNoDraft = errors.New("editor: no draft open")
	// ErrDraftOpen rejects deleting a record other than the one being edited
	// while a draft is open.
	ErrDraftOpen = errors.New("editor: a draft is open")
	// ErrNotConfirmed is returned when a delete was not confirmed.
	ErrNotConfirmed = errors.New("editor: delete not confirmed")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("editor: closed")
	// ErrUnknownField is returned for names the schema does not declare.
	ErrUnknownField = errors.New("editor: unknown field")
	// ErrIndexRange is returned for sub-collection positions out of range.
	ErrIndexRange = errors.New("editor: index out of range")
	// ErrNoBlobStore is returned by AttachFile when no blob store is wired.
	ErrNoBlobStore = errors.New("editor: no blob store configured")
)

// ValidationError is a local rejection raised before any remote call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// RemoteError wraps a failed store or blob call. Editor state is unchanged
// when one is returned.
type RemoteError struct {
	Op  Op
	Err error
}

func (e *RemoteError) Error() string { return fmt.Sprintf("%s failed: %v", e.Op, e.Err) }

func (e *RemoteError) Unwrap() error { return e.Err }

// IsNotFound reports whether err carries a domain.ErrNotFound.
func IsNotFound(err error) bool {
	var nf domain.ErrNotFound
	if errors.As(err, &nf) {
		return true
	}
	var pnf *domain.ErrNotFound
	return errors.As(err, &pnf)
}

// Confirmer approves destructive operations.
type Confirmer interface {
	Confirm(r domain.Record) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(r domain.Record) bool

func (f ConfirmFunc) Confirm(r domain.Record) bool { return f(r) }

// Confirmed approves every request. Used by non-interactive callers that
// already asked (CLI --yes).
var Confirmed Confirmer = ConfirmFunc(func(domain.Record) bool { return true })
