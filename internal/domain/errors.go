package domain

import "errors"

var (
	// ErrInvalidReading wraps ingest validation failures.
	ErrInvalidReading = errors.New("invalid reading")

	// ErrReadingNotFound is returned by stores when no reading matches.
	ErrReadingNotFound = errors.New("reading not found")

	// ErrInvalidAlert is returned when an alert has no message or author.
	ErrInvalidAlert = errors.New("invalid alert")
)
