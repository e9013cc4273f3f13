package market

import "errors"

var (
	// ErrBaseURLRequired indicates an empty marketplace base URL.
	ErrBaseURLRequired = errors.New("market: base url is required")
	// ErrTokenRequired indicates an empty bearer token.
	ErrTokenRequired = errors.New("market: token is required")
	// ErrMalformedResponse indicates a response body that could not be decoded.
	ErrMalformedResponse = errors.New("market: malformed response")
)
