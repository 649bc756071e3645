// Package common defines shared constants and sentinel errors used across
// the uploader components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Configuration errors. These are authoring mistakes and are never retried.
	ErrUnsupportedBodyFormat = errors.New("unsupported request format")
	ErrInvalidProfile        = errors.New("invalid uploader profile")
	ErrProfileNotFound       = errors.New("uploader profile not found")
	ErrKeyNotReferenced      = errors.New("encryption key is not referenced by the request")

	// Crypto errors (entropy exhaustion, cipher setup).
	ErrCryptoFailure = errors.New("crypto failure")

	// Runtime errors recorded on the upload result rather than returned.
	ErrTransportFailure  = errors.New("transport failure")
	ErrExtractionFailure = errors.New("extraction failure")
)
