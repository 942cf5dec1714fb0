package types

import "errors"

var (
	// ErrNotFound is returned when an input image does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrResize is returned when an image cannot be brought under the size limit.
	ErrResize = errors.New("resize failed")
	// ErrSubmission is returned when the labeling backend call fails.
	ErrSubmission = errors.New("submission failed")
	// ErrIO is returned when the report cannot be written.
	ErrIO = errors.New("io failure")
)
