package model

import "errors"

// ErrNotFound is returned by point lookups and by mutations that require an
// existing row. Delete/cancel paths deliberately swallow it; payment
// application surfaces it.
var ErrNotFound = errors.New("record not found")
