package mesh

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrEmptyInput is returned when no scanner reports were supplied
	ErrEmptyInput = errors.New("no scanners provided")
	// ErrMissingReference is returned when the reference scanner is absent from the input
	ErrMissingReference = errors.New("reference scanner not found")
	// ErrRegistrationStalled is returned when a full pass registers no new scanner
	ErrRegistrationStalled = errors.New("registration stalled")
	// ErrAlreadyRegistered guards the write-once transform chain
	ErrAlreadyRegistered = errors.New("scanner already registered")
	// ErrNotRegistered is returned when unifying a scanner that has no chain
	ErrNotRegistered = errors.New("scanner not registered")
	// ErrInvalidReport is returned by the report parser for malformed input
	ErrInvalidReport = errors.New("invalid scanner report")
)

// StalledError lists the scanners that could not be linked to the reference frame.
// It unwraps to ErrRegistrationStalled.
type StalledError struct {
	Unregistered []int
	Passes       int
}

func (e *StalledError) Error() string {
	ids := make([]string, len(e.Unregistered))
	for i, id := range e.Unregistered {
		ids[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("%v after %d passes: no overlap path to scanners [%s]",
		ErrRegistrationStalled, e.Passes, strings.Join(ids, ", "))
}

func (e *StalledError) Unwrap() error {
	return ErrRegistrationStalled
}
