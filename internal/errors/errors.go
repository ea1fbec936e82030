// Package errors defines the sentinel error values shared across the
// ingestion subsystem. Callers match them with errors.Is after the usual
// fmt.Errorf("%w") wrapping.
package errors

import "errors"

// Validation errors. Items failing validation never enter the ledger.
var (
	ErrTypeNotAllowed = errors.New("file type is not allowed")
	ErrSizeExceeded   = errors.New("file exceeds the size limit")
	ErrTooManyItems   = errors.New("too many items for this session")
)

// Ingest errors.
var (
	ErrItemNotFound     = errors.New("no item with that token")
	ErrConversionFailed = errors.New("external source conversion failed")
)

// Remote transport errors.
var (
	ErrRemoteRequest  = errors.New("remote request failed")
	ErrRemoteResponse = errors.New("unexpected remote response")
)
