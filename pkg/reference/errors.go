package reference

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIncompleteReference = errors.New("incomplete reference")
	ErrMalformedReference  = errors.New("malformed reference")
)

// IncompleteReferenceError is returned when a reference object holds fewer identity
// values than its target resource declares.
type IncompleteReferenceError struct {
	Reference string
	// Path is the concrete location of the reference object.
	Path string
	// Missing lists the target identity paths with no value.
	Missing []string
}

func (e *IncompleteReferenceError) Error() string {
	return fmt.Sprintf("%s: '%s' at %s is missing %s", ErrIncompleteReference, e.Reference, e.Path, strings.Join(e.Missing, ", "))
}

func (e *IncompleteReferenceError) Unwrap() error {
	return ErrIncompleteReference
}

// MalformedReferenceError is returned when a reference value is not a scalar, or when one
// reference object yields more than one value for the same identity path.
type MalformedReferenceError struct {
	Reference string
	Path      string
	Reason    string
}

func (e *MalformedReferenceError) Error() string {
	return fmt.Sprintf("%s: '%s' at %s %s", ErrMalformedReference, e.Reference, e.Path, e.Reason)
}

func (e *MalformedReferenceError) Unwrap() error {
	return ErrMalformedReference
}
