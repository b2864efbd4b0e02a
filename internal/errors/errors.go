package errors

import (
	"errors"
	"fmt"
)

// Wrap adds context to an existing error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Is checks if an error matches a target error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to map an error to a specific type.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap retrieves the underlying error, if present.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

var (
	// Bundle/filesystem errors
	ErrFileNotFound    = New("file not found")
	ErrNotRegularFile  = New("not a regular file")
	ErrUnreadableFile  = New("file not readable")
	ErrBundleInvalid   = New("bundle is not a valid archive")
	ErrMetadataMissing = New("no plugin metadata found in bundle")

	// Lifecycle errors
	ErrPluginNotFound     = New("plugin not found")
	ErrDuplicatePluginID  = New("plugin with this id is already loaded")
	ErrMainClassNotFound  = New("main class not registered in factory registry")
	ErrPluginInitFailed   = New("plugin initialization failed")
	ErrPluginCleanupError = New("plugin cleanup failed")
)
