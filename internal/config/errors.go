package config

import (
	"errors"
	"strings"
)

// ErrInvalidJob is matched by every ValidationErrors value.
var ErrInvalidJob = errors.New("invalid job configuration")

// FieldError is one field-level configuration problem.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every problem found in a job descriptor.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	lines := make([]string, 0, len(v))
	for _, fe := range v {
		lines = append(lines, fe.String())
	}
	return strings.Join(lines, "\n")
}

// Is lets errors.Is match ErrInvalidJob.
func (v ValidationErrors) Is(target error) bool {
	return target == ErrInvalidJob
}
