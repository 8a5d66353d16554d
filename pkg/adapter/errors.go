package adapter

import "errors"

// Errors returned by adapters for the read/write boundary of a batch.
var (
	// ErrInputNotFound means the source file does not exist.
	ErrInputNotFound = errors.New("input not found")

	// ErrReadFailed means the source exists but could not be staged, for
	// example because it is not a parquet file.
	ErrReadFailed = errors.New("read failed")

	// ErrWriteFailed means the destination could not be written. The
	// previous file at the destination, if any, is left in place.
	ErrWriteFailed = errors.New("write failed")

	// ErrMissingColumn means the source lacks a column the transformer needs.
	ErrMissingColumn = errors.New("missing required column")
)
