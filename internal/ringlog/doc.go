// Package ringlog implements the lock-free, partitioned fragment log that
// backs the dispatcher: a fixed-size byte region split into three equal
// Partitions rotated cyclically, framed with an 8-byte-aligned header per
// fragment, and written to through a CAS-serialized claim/commit protocol.
//
// # Overview
//
// A LogBuffer owns 3 * partitionSize contiguous bytes plus out-of-band
// partition metadata (status, tail counter). An Appender claims aligned
// regions of the active partition, writes an uncommitted (negative-length)
// header, and flips it positive on Commit — with release-store semantics so
// that a subscriber observing the positive length also observes the
// payload. When a partition runs out of room the Appender writes a padding
// frame spanning the remainder and rotates to the next partition, provided
// that partition has been fully reclaimed (CLEAN) by every subscription.
//
// # Frame layout
//
//	length   int32  // <0 claimed, >0 committed, 0 unread
//	ftype    int16  // FrameTypeMessage or FrameTypePadding
//	flags    int8   // FlagFailed
//	_        int8   // reserved
//	streamID int32  // opaque routing key
//	_        int32  // reserved, keeps the header a multiple of FrameAlignment
//	payload  []byte // zero-padded to FrameAlignment
//
// Header size is HeaderLength (16) bytes, itself 8-byte aligned.
package ringlog
