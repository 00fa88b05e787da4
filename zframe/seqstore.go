package zframe

import (
	"fmt"
	"math/bits"
)

type seq struct {
	litLen   uint32
	matchLen uint32 // minus MinMatch
	offset   uint32

	// Codes are stored here for the encoder
	// so they only have to be looked up once.
	llCode, mlCode, ofCode uint8
}

func (s seq) String() string {
	if s.ofCode == 0 {
		return fmt.Sprint("litLen:", s.litLen, ", matchLen:", s.matchLen+MinMatch, ", offset:", s.offset, " (repeat)")
	}
	return fmt.Sprint("litLen:", s.litLen, ", matchLen:", s.matchLen+MinMatch, ", offset:", s.offset)
}

// seqStore collects the sequences and literals of one block.
type seqStore struct {
	literals  []byte
	sequences []seq
	dumps     []byte

	// rep holds the two most recent offsets.
	rep [2]uint32
}

func (s *seqStore) init() {
	s.literals = make([]byte, 0, MaxBlockSize)
	s.sequences = make([]seq, 0, maxSequences)
	s.dumps = make([]byte, 0, 1024)
}

func (s *seqStore) reset() {
	s.literals = s.literals[:0]
	s.sequences = s.sequences[:0]
	s.dumps = s.dumps[:0]
	s.rep = [2]uint32{repStartValue, repStartValue}
}

// store adds a sequence: litLen bytes from lits, then a match of matchLen
// bytes at offset.
func (s *seqStore) store(lits []byte, offset, matchLen int) {
	if matchLen < MinMatch {
		panic(fmt.Sprintf("zframe: match length %d is shorter than %d", matchLen, MinMatch))
	}
	s.literals = append(s.literals, lits...)

	sq := seq{
		litLen:   uint32(len(lits)),
		matchLen: uint32(matchLen - MinMatch),
		offset:   uint32(offset),
	}
	sq.llCode = s.lengthCode(sq.litLen, maxLL)
	sq.mlCode = s.lengthCode(sq.matchLen, maxML)

	off := sq.offset
	if (sq.litLen > 0 && off == s.rep[0]) || (sq.litLen == 0 && off == s.rep[1]) {
		sq.ofCode = 0
	} else {
		sq.ofCode = uint8(bits.Len32(off))
	}
	s.rep[1], s.rep[0] = s.rep[0], off

	if debugSequences {
		println(sq)
	}
	s.sequences = append(s.sequences, sq)
}

// storeLastLiterals adds literals that aren't followed by a match.
func (s *seqStore) storeLastLiterals(lits []byte) {
	s.literals = append(s.literals, lits...)
}

// lengthCode returns the code for v, writing the excess over maxCode to
// the dumps when v doesn't fit.
func (s *seqStore) lengthCode(v uint32, maxCode uint8) uint8 {
	if v < uint32(maxCode) {
		return uint8(v)
	}
	if excess := v - uint32(maxCode); excess < 255 {
		s.dumps = append(s.dumps, byte(excess))
	} else {
		s.dumps = append(s.dumps, 255, byte(v), byte(v>>8), byte(v>>16))
	}
	return maxCode
}

// readDump reads the escaped value of a length that used the maximum
// code.
func readDump(dumps []byte, code uint32) (v uint32, rest []byte, err error) {
	if len(dumps) < 1 {
		return 0, nil, fmt.Errorf("%w: dumps exhausted", ErrCorruptionDetected)
	}
	if add := dumps[0]; add < 255 {
		return code + uint32(add), dumps[1:], nil
	}
	if len(dumps) < 4 {
		return 0, nil, fmt.Errorf("%w: dumps exhausted", ErrCorruptionDetected)
	}
	return uint32(dumps[1]) | uint32(dumps[2])<<8 | uint32(dumps[3])<<16, dumps[4:], nil
}
