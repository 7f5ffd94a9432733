package ipc

import "errors"

// ErrAbsent means the named object does not exist in the namespace.
var ErrAbsent = errors.New("ipc: object absent")
