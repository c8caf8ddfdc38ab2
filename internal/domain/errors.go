package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFilesystem marks failures creating directories or writing files.
	ErrFilesystem = errors.New("filesystem error")
	// ErrEnvironment marks a missing or failing external tool.
	ErrEnvironment = errors.New("environment error")
	// ErrRuntime marks any other job-fatal failure.
	ErrRuntime = errors.New("runtime error")
)

// FilesystemError wraps an I/O failure on a corpus path.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() []error {
	return []error{ErrFilesystem, e.Err}
}

// EnvironmentError wraps a failure of an external binary.
type EnvironmentError struct {
	Tool string
	Err  error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *EnvironmentError) Unwrap() []error {
	return []error{ErrEnvironment, e.Err}
}
