// Package errs defines the error taxonomy shared by the storage layer and
// the services. Every error that crosses a package boundary carries a Kind
// so that callers (and ultimately the boundary layer) can classify it
// without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error. The set is closed; the boundary maps kinds to
// exit codes or HTTP statuses.
type Kind string

const (
	// InvalidID marks a syntactically malformed identifier.
	InvalidID Kind = "invalid-id"
	// MissingRecord marks a reference to an entity that does not exist.
	MissingRecord Kind = "missing-record"
	// DuplicateRecord marks a sibling/code uniqueness violation.
	DuplicateRecord Kind = "duplicate-record"
	// ChildElementsExist marks a mutation refused because dependent
	// records exist.
	ChildElementsExist Kind = "child-elements-exist"
	// LeafParent marks an attempt to place a child under a leaf category.
	LeafParent Kind = "leaf-parent"
	// InvalidAction marks a structural or rule violation: cycle moves,
	// type mismatches, illegal allowed-values changes, missing transition
	// rules.
	InvalidAction Kind = "invalid-action"
	// DuplicatePropertyName marks a property-schema name collision.
	DuplicatePropertyName Kind = "duplicate-property-name"
	// InvalidPropertyType marks a value failing its declared type or
	// allowed-values membership.
	InvalidPropertyType Kind = "invalid-property-type"
	// MissingMandatoryProperty marks a mandatory property that is null or
	// absent.
	MissingMandatoryProperty Kind = "missing-mandatory-property"
	// WriteConflict marks a transient transactional conflict. Retriable.
	WriteConflict Kind = "write-conflict"
	// DatabaseIntegrity marks an internal consistency violation, e.g. an
	// orphaned parent link. Not recoverable; must be logged.
	DatabaseIntegrity Kind = "database-integrity"
	// ObjectStorageAuth marks an authentication failure from the outbound
	// object-storage collaborator.
	ObjectStorageAuth Kind = "object-storage-auth"
	// ObjectStorageServer marks any other object-storage failure.
	ObjectStorageServer Kind = "object-storage-server"
)

// Error is the concrete error type carrying a Kind. It interoperates with
// errors.Is/As and wraps an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a kind-classified error with the given message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf returns a kind-classified error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns a kind-classified error wrapping cause. Returns nil when
// cause is nil.
func Wrap(kind Kind, msg string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// KindOf returns the Kind of err, unwrapping as needed. Returns the empty
// Kind for nil and for errors that carry no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err (or anything it wraps) carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retriable reports whether the caller may retry the failed operation.
// Only write conflicts are retriable.
func Retriable(err error) bool {
	return Is(err, WriteConflict)
}
