package domain

import "errors"

// ErrInvalidInput is returned for malformed simulator inputs: empty or
// unordered candles, non-positive entry price, inconsistent exit plans.
// Fatal for the single call, never retried internally.
var ErrInvalidInput = errors.New("invalid input")
