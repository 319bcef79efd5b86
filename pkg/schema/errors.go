package schema

import (
	"errors"
	"fmt"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrResourceNotFound = errors.New("resource not found")
	ErrInvalidSchema    = errors.New("invalid api schema")
)

// InvalidResourceError reports a problem with the declaration of one resource.
type InvalidResourceError struct {
	ProjectName  string
	ResourceName string
	Cause        error
}

func (e *InvalidResourceError) Error() string {
	return fmt.Sprintf("the definition of resource '%s.%s' is invalid: %s", e.ProjectName, e.ResourceName, e.Cause)
}

func (e *InvalidResourceError) Unwrap() error {
	return e.Cause
}

func resourceNotFound(projectName, resourceName string) error {
	return fmt.Errorf("%w: '%s.%s'", ErrResourceNotFound, projectName, resourceName)
}
