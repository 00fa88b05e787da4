package snappy

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"math/bits"

	"github.com/andybalholm/zpack"
)

// MaxBlockSize is the most uncompressed data one chunk of the framing
// format may hold.
const MaxBlockSize = 65536

// Chunk types.
const (
	chunkCompressed   = 0x00
	chunkUncompressed = 0x01
	chunkStreamID     = 0xff
)

const streamID = "sNaPpY"

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// maskedCRC returns the CRC-32C of b, rotated and offset as the framing
// format requires.
func maskedCRC(b []byte) uint32 {
	c := crc32.Checksum(b, castagnoli)
	return bits.RotateLeft32(c, -15) + 0xa282ead8
}

// An Encoder implements the zpack.Encoder interface, writing in the snappy
// framing format. Each block becomes one chunk; a block that saves less
// than an eighth of its size is stored uncompressed.
type Encoder struct {
	block []byte
}

func (e *Encoder) Header(dst []byte) []byte {
	dst = append(dst, chunkStreamID, byte(len(streamID)), 0, 0)
	return append(dst, streamID...)
}

func (e *Encoder) Reset() {}

func (e *Encoder) Encode(dst []byte, src []byte, matches []zpack.Match, lastBlock bool) []byte {
	if len(src) > MaxBlockSize {
		panic("snappy: block too large for a chunk")
	}
	if len(src) == 0 {
		return dst
	}
	e.block = appendBlock(e.block[:0], src, matches)
	if len(e.block) < len(src)-len(src)/8 {
		return appendChunk(dst, chunkCompressed, e.block, src)
	}
	return appendChunk(dst, chunkUncompressed, src, src)
}

// appendChunk appends a data chunk holding body. The checksum covers the
// uncompressed data.
func appendChunk(dst []byte, typ byte, body, uncompressed []byte) []byte {
	n := len(body) + 4
	dst = append(dst, typ, byte(n), byte(n>>8), byte(n>>16))
	dst = binary.LittleEndian.AppendUint32(dst, maskedCRC(uncompressed))
	return append(dst, body...)
}

// NewWriter returns a zpack.Writer that writes the snappy framing format
// to dst. Its FastMatcher starts over with each chunk and never looks
// further back than a chunk can reach.
func NewWriter(dst io.Writer) *zpack.Writer {
	return &zpack.Writer{
		Dest: dst,
		MatchFinder: zpack.AutoReset{MatchFinder: &zpack.FastMatcher{
			HashLog:     14,
			MaxDistance: MaxBlockSize - 1,
		}},
		Encoder:   &Encoder{},
		BlockSize: MaxBlockSize,
	}
}
