// Package zframe implements a block-based LZ77 compression format with
// Huffman-coded literals and FSE-coded sequences.
//
// A frame is a 4-byte magic number followed by blocks of at most
// MaxBlockSize bytes of input each, and an end block. Blocks may refer
// back to data in earlier blocks of the same frame, up to the window size.
//
// Compress and Decompress work on whole buffers. Compressor and
// Decompressor build or take apart a frame one block at a time.
// StreamCompressor and StreamDecompressor accept input and output in pieces
// of any size, and Writer and Reader wrap them as an io.Writer and an
// io.Reader.
package zframe

import (
	"log"
	"math/bits"
)

// enable debug printing
const debug = false

// enable encoding debug printing
const debugEncoder = debug

// enable decoding debug printing
const debugDecoder = debug

// print sequence details
const debugSequences = false

const (
	// Magic is the number at the start of every frame, stored little-endian.
	Magic = 0xFD2FB522

	frameHeaderSize = 4
	blockHeaderSize = 3

	// MaxBlockSize is the largest amount of input in one block.
	MaxBlockSize = 128 << 10

	// WindowLogMax is the log2 of the largest window (the furthest back a
	// match may reach).
	WindowLogMax = 21
	WindowLogMin = 10

	// MinMatch is the shortest match the format can represent.
	MinMatch = 4

	repStartValue = 4

	// literalNoEntropy is the longest literal run that is always stored raw.
	literalNoEntropy = 63
)

// Symbol limits and table logs for the three sequence streams.
const (
	llBits  = 6
	mlBits  = 7
	offBits = 5

	maxLL  = 1<<llBits - 1
	maxML  = 1<<mlBits - 1
	maxOff = 1<<offBits - 1

	llFSELog  = 10
	mlFSELog  = 10
	offFSELog = 9

	minTablelog  = 5
	maxTableLog  = 10
	maxTablesize = 1 << maxTableLog
)

// maxSequences is the most sequences one block can hold.
const maxSequences = MaxBlockSize/MinMatch + 1

type blockType uint8

const (
	blockTypeCompressed blockType = iota
	blockTypeRaw
	blockTypeRLE
	blockTypeEnd
)

func (b blockType) String() string {
	switch b {
	case blockTypeCompressed:
		return "compressed"
	case blockTypeRaw:
		return "raw"
	case blockTypeRLE:
		return "rle"
	case blockTypeEnd:
		return "end"
	}
	return "invalid"
}

type literalsBlockType uint8

const (
	literalsBlockCompressed literalsBlockType = iota
	literalsBlockRaw
	literalsBlockRLE
)

// seqCompMode is how one of the three sequence streams is encoded.
type seqCompMode uint8

const (
	compModeCompressed seqCompMode = iota
	compModeRaw
	compModeRLE
)

func (m seqCompMode) String() string {
	switch m {
	case compModeCompressed:
		return "compressed"
	case compModeRaw:
		return "raw"
	case compModeRLE:
		return "rle"
	}
	return "invalid"
}

// minGain returns how much smaller than n bytes a compressed representation
// must be to be worth using.
func minGain(n int) int {
	return n>>6 + 1
}

// CompressBound returns the largest size that compressing n bytes can
// produce.
func CompressBound(n int) int {
	blocks := (n + MaxBlockSize - 1) / MaxBlockSize
	if blocks == 0 {
		blocks = 1
	}
	return frameHeaderSize + blockHeaderSize + n + blockHeaderSize*blocks
}

func highBit(v uint32) uint32 {
	return uint32(bits.Len32(v) - 1)
}

func println(a ...interface{}) {
	if debug || debugDecoder || debugEncoder {
		log.Println(a...)
	}
}

func printf(format string, a ...interface{}) {
	if debug || debugDecoder || debugEncoder {
		log.Printf(format, a...)
	}
}
