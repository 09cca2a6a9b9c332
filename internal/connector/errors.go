package connector

import "errors"

// ErrCannotConnect wraps failures during initial connection or ping,
// matching the teacher's errors.go style of exporting sentinel values
// for every failure category a caller might want to branch on.
var ErrCannotConnect = errors.New("cannot connect to MongoDB")
