package core

import "errors"

var (
	// ErrNoFiles is returned when an ingest request carries no blobs.
	ErrNoFiles = errors.New("no file provided")

	// ErrRowNotFound is returned when a row key does not exist.
	ErrRowNotFound = errors.New("row not found")

	// ErrTooManyUploads is returned when all upload slots stay busy past the wait timeout.
	ErrTooManyUploads = errors.New("too many uploads in progress, please try again later")
)
