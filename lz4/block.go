// Package lz4 writes the LZ4 block and frame formats from the matches found
// by a zpack.MatchFinder.
package lz4

import (
	"encoding/binary"

	"github.com/andybalholm/zpack"
)

const (
	// The format requires the last 5 bytes of a block to be literals, and
	// the last match to start at least 12 bytes before the end.
	lastLiterals = 5
	mfLimit      = 12

	// maxDistance is the furthest back an LZ4 match can reach.
	maxDistance = 65535
)

// A BlockEncoder implements the zpack.Encoder interface, writing in the LZ4
// block format. Each call to Encode produces one block; there is no
// framing.
type BlockEncoder struct{}

func (BlockEncoder) Header(dst []byte) []byte { return dst }

func (BlockEncoder) Reset() {}

func (BlockEncoder) Encode(dst []byte, src []byte, matches []zpack.Match, lastBlock bool) []byte {
	return appendBlock(dst, src, matches)
}

// appendBlock appends the LZ4 block for src to dst.
func appendBlock(dst, src []byte, matches []zpack.Match) []byte {
	// Matches too close to the end become literals.
	trailing := 0
	for len(matches) > 0 && (trailing < lastLiterals || trailing+matches[len(matches)-1].Length < mfLimit) {
		last := matches[len(matches)-1]
		matches = matches[:len(matches)-1]
		trailing += last.Unmatched + last.Length
	}

	pos := 0
	for _, m := range matches {
		if m.Distance > maxDistance {
			panic("lz4: match distance out of range")
		}
		dst = appendSequence(dst, src[pos:pos+m.Unmatched], m.Length)
		dst = binary.LittleEndian.AppendUint16(dst, uint16(m.Distance))
		if m.Length-zpack.MinMatch >= 15 {
			dst = appendInt(dst, m.Length-zpack.MinMatch-15)
		}
		pos += m.Unmatched + m.Length
	}

	// The final sequence has literals only.
	return appendSequence(dst, src[pos:], 0)
}

// appendSequence writes the token and the literals of a sequence. The
// offset and the rest of the match length are left to the caller.
func appendSequence(dst, lits []byte, matchLen int) []byte {
	var token byte
	if len(lits) >= 15 {
		token = 0xf0
	} else {
		token = byte(len(lits)) << 4
	}
	if matchLen > 0 {
		token |= byte(min(matchLen-zpack.MinMatch, 15))
	}
	dst = append(dst, token)
	if len(lits) >= 15 {
		dst = appendInt(dst, len(lits)-15)
	}
	return append(dst, lits...)
}

// appendInt appends n to dst in LZ4's variable-length integer format.
func appendInt(dst []byte, n int) []byte {
	for n >= 255 {
		dst = append(dst, 255)
		n -= 255
	}
	return append(dst, byte(n))
}
