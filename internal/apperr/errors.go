// Package apperr holds the sentinel errors shared across bloggen packages.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrMalformedMetadata = errors.New("malformed metadata")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrUploadFailure     = errors.New("upload failure")
)
