package session

import "errors"

// ErrNotFound indicates an operation addressed an unregistered identity.
// The router translates it into the registration prompt; it is never fatal.
var ErrNotFound = errors.New("session not found")
