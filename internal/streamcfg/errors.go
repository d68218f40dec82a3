package streamcfg

import (
	"errors"
	"fmt"
)

// CodecError represents a failure in packing, unpacking, or formatting
// receiver configurations.
//
// Codec errors include:
//   - Out of range: a field value does not fit its allotted bit width
//   - Malformed encoding: a packed value is negative or wider than 256 bits
//   - Unsorted receivers: a caller-supplied list violates canonical order
//
// CodecError includes the offending field for diagnostics.
type CodecError struct {
	// Code identifies the error category.
	Code CodecErrorCode

	// Field names the offending field or list position.
	Field string

	// Message is a human-readable description.
	Message string
}

// CodecErrorCode categorizes codec errors.
type CodecErrorCode string

const (
	// ErrCodeOutOfRange indicates a field value exceeds its bit width.
	ErrCodeOutOfRange CodecErrorCode = "OUT_OF_RANGE"

	// ErrCodeMalformedEncoding indicates a packed value that no valid
	// configuration could have produced.
	ErrCodeMalformedEncoding CodecErrorCode = "MALFORMED_ENCODING"

	// ErrCodeUnsortedReceivers indicates a receiver list that violates the
	// canonical ascending (userId, config) order the ledger hashes over.
	ErrCodeUnsortedReceivers CodecErrorCode = "UNSORTED_RECEIVERS"
)

// Error implements the error interface.
func (e *CodecError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsOutOfRange returns true if the error is an out-of-range codec error.
// Uses errors.As to handle wrapped errors.
func IsOutOfRange(err error) bool {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeOutOfRange
	}
	return false
}

// IsMalformedEncoding returns true if the error is a malformed-encoding error.
func IsMalformedEncoding(err error) bool {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeMalformedEncoding
	}
	return false
}

// IsUnsortedReceivers returns true if the error is an unsorted-receivers error.
func IsUnsortedReceivers(err error) bool {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeUnsortedReceivers
	}
	return false
}

// newOutOfRange creates a CodecError for a field exceeding its bit width.
func newOutOfRange(field, message string) *CodecError {
	return &CodecError{Code: ErrCodeOutOfRange, Field: field, Message: message}
}

// newMalformed creates a CodecError for an invalid packed value.
func newMalformed(message string) *CodecError {
	return &CodecError{Code: ErrCodeMalformedEncoding, Message: message}
}
