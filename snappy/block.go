// Package snappy writes the snappy block and framing formats from the
// matches found by a zpack.MatchFinder.
package snappy

import (
	"encoding/binary"
	"math/bits"

	"github.com/andybalholm/zpack"
)

// Element tags.
const (
	tagLiteral = 0x00
	tagCopy1   = 0x01
	tagCopy2   = 0x02
	tagCopy4   = 0x03
)

const (
	// maxCopyLen is the longest copy one element can hold.
	maxCopyLen = 64

	// copy1MaxLen and copy1MaxOffset bound the 2-byte copy element.
	copy1MaxLen    = 11
	copy1MaxOffset = 1<<11 - 1
)

// A BlockEncoder implements the zpack.Encoder interface, writing each block
// in the snappy block format with no framing, the way snappy.Encode does.
// Each block must be decoded on its own, so the match finder must not refer
// to earlier blocks (see zpack.AutoReset). A block may be larger than 64 KB;
// copies reaching back further than that use the 5-byte element.
type BlockEncoder struct{}

func (BlockEncoder) Header(dst []byte) []byte { return dst }

func (BlockEncoder) Reset() {}

func (BlockEncoder) Encode(dst []byte, src []byte, matches []zpack.Match, lastBlock bool) []byte {
	return appendBlock(dst, src, matches)
}

// appendBlock appends the snappy block for src to dst: the decoded length
// as a uvarint, then literal and copy elements.
func appendBlock(dst, src []byte, matches []zpack.Match) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(src)))
	pos := 0
	for _, m := range matches {
		dst = appendLiteral(dst, src[pos:pos+m.Unmatched])
		pos += m.Unmatched
		dst = appendCopy(dst, m.Length, m.Distance)
		pos += m.Length
	}
	return appendLiteral(dst, src[pos:])
}

// appendLiteral writes lits as one literal element. Lengths over 60 store
// length-1 in 1 to 4 extra bytes, flagged by tag values 60 to 63.
func appendLiteral(dst, lits []byte) []byte {
	if len(lits) == 0 {
		return dst
	}
	n := uint32(len(lits) - 1)
	if n < 60 {
		dst = append(dst, byte(n)<<2|tagLiteral)
	} else {
		extra := (bits.Len32(n) + 7) / 8
		dst = append(dst, byte(59+extra)<<2|tagLiteral)
		for i := 0; i < extra; i++ {
			dst = append(dst, byte(n>>(8*i)))
		}
	}
	return append(dst, lits...)
}

// appendCopy writes a copy of length bytes from offset bytes back, as
// elements of up to maxCopyLen bytes. No element may be shorter than
// zpack.MinMatch, so a short remainder borrows from the element before it.
func appendCopy(dst []byte, length, offset int) []byte {
	for length > 0 {
		n := min(length, maxCopyLen)
		if rest := length - n; rest > 0 && rest < zpack.MinMatch {
			n = length - zpack.MinMatch
		}
		dst = appendCopyElement(dst, n, offset)
		length -= n
	}
	return dst
}

// appendCopyElement writes one copy element in its shortest form.
func appendCopyElement(dst []byte, n, offset int) []byte {
	switch {
	case n <= copy1MaxLen && offset <= copy1MaxOffset:
		return append(dst, byte(offset>>8)<<5|byte(n-4)<<2|tagCopy1, byte(offset))
	case offset < 1<<16:
		dst = append(dst, byte(n-1)<<2|tagCopy2)
		return binary.LittleEndian.AppendUint16(dst, uint16(offset))
	}
	dst = append(dst, byte(n-1)<<2|tagCopy4)
	return binary.LittleEndian.AppendUint32(dst, uint32(offset))
}
