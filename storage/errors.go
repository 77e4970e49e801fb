package storage

import "errors"

// ErrNotConnected is returned when the database handle is used before the
// connection has been established, or after it failed.
var ErrNotConnected = errors.New("database not connected")
