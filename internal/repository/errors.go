// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and the handlers to tell a missing row apart from a
// database failure.
package repository

import "errors"

// ErrNotFound is returned when a lookup or delete matches no row.
var ErrNotFound = errors.New("not found")
