package history

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the Resolver.
var (
	ErrEmptyPath             = errors.New("path must not be empty")
	ErrMalformedChangeRecord = errors.New("unexpected change record")
	ErrRenameCycle           = errors.New("rename cycle detected")
	ErrRenameSourceMissing   = errors.New("rename source has no history")
	ErrTooManyHops           = errors.New("rename chain exceeds hop limit")
)

// MalformedRecordError reports a change record that is not an add, copy or
// rename of the queried path, or that names a different path.
type MalformedRecordError struct {
	Path   string
	Commit CommitID
	Raw    string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s for %s at %s: %q", ErrMalformedChangeRecord, e.Path, e.Commit, e.Raw)
}

// Unwrap makes errors.Is match ErrMalformedChangeRecord.
func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedChangeRecord
}
