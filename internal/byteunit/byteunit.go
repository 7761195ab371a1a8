// Package byteunit parses human-sized byte quantities ("10M", "512K", "1G")
// and provides the alignment/capacity helpers the ring log needs to turn a
// requested buffer size into a valid partitioned layout.
package byteunit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// FrameAlignment is the byte boundary every frame (header+payload+padding)
// must be rounded up to.
const FrameAlignment = 8

// ByteValue is a size in bytes parsed from a suffixed literal.
type ByteValue int64

// Parse accepts a bare integer (bytes) or an integer followed by K, M, or G
// (base 1024: KiB, MiB, GiB). Parsing is case-insensitive and tolerates
// surrounding whitespace.
func Parse(s string) (ByteValue, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("byteunit: empty size literal")
	}

	mult := int64(1)
	suffix := s[len(s)-1]
	switch suffix {
	case 'k', 'K':
		mult = 1 << 10
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1 << 20
		s = s[:len(s)-1]
	case 'g', 'G':
		mult = 1 << 30
		s = s[:len(s)-1]
	}

	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("byteunit: invalid size literal %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("byteunit: negative size literal %q", s)
	}
	return ByteValue(n * mult), nil
}

// OfKilobytes returns a ByteValue of n KiB.
func OfKilobytes(n int64) ByteValue { return ByteValue(n << 10) }

// OfMegabytes returns a ByteValue of n MiB.
func OfMegabytes(n int64) ByteValue { return ByteValue(n << 20) }

// OfGigabytes returns a ByteValue of n GiB.
func OfGigabytes(n int64) ByteValue { return ByteValue(n << 30) }

// Bytes returns the plain byte count.
func (b ByteValue) Bytes() int64 { return int64(b) }

// String renders a human-readable approximation, e.g. "10 MiB".
func (b ByteValue) String() string { return humanize.IBytes(uint64(b)) }

// Align rounds n up to the next multiple of FrameAlignment. Values <= 0
// yield FrameAlignment.
func Align(n int32) int32 {
	if n <= 0 {
		return FrameAlignment
	}
	rem := n % FrameAlignment
	if rem == 0 {
		return n
	}
	return n + (FrameAlignment - rem)
}

// NextPowerOfTwo returns the smallest power of two >= n.
func NextPowerOfTwo(n int64) int64 {
	if n <= 1 {
		return 1
	}
	p := int64(1)
	for p < n {
		p <<= 1
	}
	return p
}
