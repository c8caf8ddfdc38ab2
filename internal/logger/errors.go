// Package logger provides logging functionality for the application.
package logger

import "errors"

var (
	// ErrInvalidEncoding is returned when an invalid log encoding format is provided.
	ErrInvalidEncoding = errors.New("invalid log encoding format")
	// ErrInvalidFields is reported when log fields are not key-value pairs.
	ErrInvalidFields = errors.New("invalid fields: must be key-value pairs")
)
