package zones

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrEmptyRegistry is reported while no valid zone is loaded.
	ErrEmptyRegistry = eris.New("zones: registry is empty")
	// ErrReloadFailure is returned when a new snapshot could not replace the current one.
	ErrReloadFailure = eris.New("zones: reload failed")
	// ErrDuplicateZone marks a record whose id is already taken.
	ErrDuplicateZone = eris.New("zones: duplicate zone id")
	// ErrInvalidBuffer marks a negative or non-finite buffer distance.
	ErrInvalidBuffer = eris.New("zones: invalid buffer")
)

// RecordError describes a source record rejected while building a snapshot
type RecordError struct {
	Index int
	ID    string
	Err   error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %d (%s): %v", e.Index, e.ID, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}
