package transport

import "errors"

// ErrResourceNotFound marks a resource delivery that failed because the file
// was never produced (or was pruned). Callers treat it as best-effort.
var ErrResourceNotFound = errors.New("resource not found")
