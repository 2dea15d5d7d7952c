package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned before any request is sent when no
	// credential is present or the credential has expired.
	ErrUnauthenticated = errors.New("not signed in or session expired")
	// ErrUnauthorized is returned before any request is sent when the signed
	// in user lacks the admin or publisher role.
	ErrUnauthorized = errors.New("not authorised to publish datasets")

	ErrFileEmpty       = errors.New("archive is empty")
	ErrFileTooLarge    = errors.New("archive exceeds the maximum upload size")
	ErrUnsupportedType = errors.New("archive is not a zip file")
)

// TransitionError reports an operation invoked from a step it is not valid in.
type TransitionError struct {
	Op   string
	From Step
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s is not valid from step %s", e.Op, e.From)
}

// MissingFieldError reports a required metadata field left empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("please supply a %s", e.Field)
}
