package identity

import (
	"errors"
	"fmt"
)

var ErrMalformedIdentity = errors.New("malformed document identity")

// MalformedIdentityError is returned when an identity path does not resolve to exactly
// one scalar value.
type MalformedIdentityError struct {
	Resource ResourceInfo
	Path     string
	Matches  int
	Reason   string
}

func (e *MalformedIdentityError) Error() string {
	return fmt.Sprintf("%s: identity path '%s' of '%s' %s", ErrMalformedIdentity, e.Path, e.Resource, e.Reason)
}

func (e *MalformedIdentityError) Unwrap() error {
	return ErrMalformedIdentity
}

func missing(info ResourceInfo, path string) error {
	return &MalformedIdentityError{Resource: info, Path: path, Reason: "is missing"}
}

func ambiguous(info ResourceInfo, path string, matches int) error {
	return &MalformedIdentityError{
		Resource: info,
		Path:     path,
		Matches:  matches,
		Reason:   fmt.Sprintf("matched %d values, expected exactly one", matches),
	}
}

func notScalar(info ResourceInfo, path string, kind fmt.Stringer) error {
	return &MalformedIdentityError{
		Resource: info,
		Path:     path,
		Matches:  1,
		Reason:   fmt.Sprintf("holds a %s, expected a scalar", kind),
	}
}
