package ringlog

import (
	"sync/atomic"
	"unsafe"
)

// HeaderLength is the fixed size, in bytes, of a frame header. It is a
// multiple of FrameAlignment by construction.
const HeaderLength = 16

const (
	lengthOffset   = 0
	typeOffset     = 4
	flagsOffset    = 6
	streamIDOffset = 8
)

// Frame type tags.
const (
	FrameTypeMessage int16 = 0
	FrameTypePadding int16 = 1
)

// Frame flag bits.
const (
	FlagFailed uint8 = 1 << 0
)

// frameHeaderLength atomically loads the length word (acquire semantics)
// at the given frame offset within buf.
func frameHeaderLength(buf []byte, offset int32) int32 {
	p := (*int32)(unsafe.Pointer(&buf[offset+lengthOffset]))
	return atomic.LoadInt32(p)
}

// storeFrameHeaderLength atomically stores the length word (release
// semantics) at the given frame offset within buf.
func storeFrameHeaderLength(buf []byte, offset int32, length int32) {
	p := (*int32)(unsafe.Pointer(&buf[offset+lengthOffset]))
	atomic.StoreInt32(p, length)
}

// frameType atomically loads the 32-bit word holding type, flags and the
// reserved byte, and returns its type half.
func frameType(buf []byte, offset int32) int16 {
	w := atomic.LoadUint32((*uint32)(unsafe.Pointer(&buf[offset+typeOffset])))
	return *(*int16)(unsafe.Pointer(&w))
}

// storeFrameType atomically replaces the type half of that word, leaving
// the flags and reserved bytes as they are.
func storeFrameType(buf []byte, offset int32, t int16) {
	p := (*uint32)(unsafe.Pointer(&buf[offset+typeOffset]))
	for {
		old := atomic.LoadUint32(p)
		w := old
		*(*int16)(unsafe.Pointer(&w)) = t
		if atomic.CompareAndSwapUint32(p, old, w) {
			return
		}
	}
}

func frameFlags(buf []byte, offset int32) uint8 {
	return buf[offset+flagsOffset]
}

func setFrameFailed(buf []byte, offset int32) {
	// single-writer-at-a-time-per-frame by construction (only the committing
	// producer or the consumer marking a FAILED_FRAGMENT_RESULT touches this
	// byte), so a plain store is sufficient.
	buf[offset+flagsOffset] |= FlagFailed
}

func frameStreamID(buf []byte, offset int32) int32 {
	p := (*int32)(unsafe.Pointer(&buf[offset+streamIDOffset]))
	return atomic.LoadInt32(p)
}

func storeFrameStreamID(buf []byte, offset int32, streamID int32) {
	p := (*int32)(unsafe.Pointer(&buf[offset+streamIDOffset]))
	atomic.StoreInt32(p, streamID)
}

// writeHeader initializes a freshly claimed frame: negative (uncommitted)
// length, type, zeroed flags, and stream id. Payload bytes are left as-is
// (the caller either copies into them immediately, for Offer, or hands the
// window back to the producer, for Claim).
func writeHeader(buf []byte, offset int32, claimedLength int32, ftype int16, streamID int32) {
	buf[offset+flagsOffset] = 0
	storeFrameType(buf, offset, ftype)
	storeFrameStreamID(buf, offset, streamID)
	storeFrameHeaderLength(buf, offset, -claimedLength)
}

// writePaddingHeader marks padLength trailing bytes of a partition as a
// padding frame, published immediately (no claim/commit phase). padLength
// is always a multiple of FrameAlignment and at least FrameAlignment, but
// it can be smaller than HeaderLength when a partition's size isn't a
// multiple of every frame length that rotates through it — in that case
// flags and stream id have no room and are left unwritten; padding frames
// never read them.
func writePaddingHeader(buf []byte, offset int32, padLength int32) {
	storeFrameType(buf, offset, FrameTypePadding)
	if padLength >= HeaderLength {
		buf[offset+flagsOffset] = 0
		storeFrameStreamID(buf, offset, 0)
	}
	storeFrameHeaderLength(buf, offset, padLength)
}
