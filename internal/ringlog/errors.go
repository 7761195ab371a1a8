package ringlog

import "errors"

// ErrInsufficientCapacity is returned by Claim when the active partition has
// no room for the requested frame and the next partition is not yet
// reclaimable (the slowest subscription has not caught up), or when the
// publisher limit would be exceeded.
var ErrInsufficientCapacity = errors.New("ringlog: insufficient capacity")

// ErrInvalidLength is returned by Claim for a non-positive length or one
// that exceeds the configured frame maximum.
var ErrInvalidLength = errors.New("ringlog: invalid claim length")

// errPartitionNotReclaimable is an internal condition: the next partition in
// rotation order is not CLEAN yet. Callers translate this to
// ErrInsufficientCapacity; it never escapes the package.
var errPartitionNotReclaimable = errors.New("ringlog: partition not reclaimable")
