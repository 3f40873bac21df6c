package settings

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDocument is returned by a Backend that has never been written.
	ErrNoDocument = errors.New("no settings document stored")

	ErrOutOfSection = errors.New("field does not belong to section")
	ErrUnknownField = errors.New("unknown settings field")
	ErrInvalidURL   = errors.New("invalid url")
)

// PersistenceError reports a save that did not reach storage, or a stored
// document that could not be read back for a merge. Either way the stored
// document is left as it was before the call.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("settings %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// MalformedSettingsError reports stored bytes that are not a settings
// document at all. Readers never see it; they get defaults instead.
type MalformedSettingsError struct {
	Err error
}

func (e *MalformedSettingsError) Error() string {
	return fmt.Sprintf("malformed settings document: %v", e.Err)
}

func (e *MalformedSettingsError) Unwrap() error {
	return e.Err
}
