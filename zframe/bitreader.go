package zframe

import (
	"encoding/binary"
	"fmt"
)

// bitReader reads a stream written by bitWriter, starting at the end.
// The last byte must contain the end-of-stream marker.
type bitReader struct {
	in       []byte
	off      int // bytes left to load, from in[0:off]
	value    uint64
	bitsRead uint8
}

func (b *bitReader) init(in []byte) error {
	if len(in) < 1 {
		return fmt.Errorf("%w: empty bitstream", ErrCorruptionDetected)
	}
	v := in[len(in)-1]
	if v == 0 {
		return fmt.Errorf("%w: bitstream end marker missing", ErrCorruptionDetected)
	}
	b.in = in
	b.off = len(in)
	b.value = 0
	b.bitsRead = 64
	if len(in) >= 8 {
		b.value = binary.LittleEndian.Uint64(in[len(in)-8:])
		b.bitsRead = 0
		b.off -= 8
	} else {
		b.fill()
		b.fill()
	}
	// Skip the padding and the marker bit.
	b.bitsRead += 8 - uint8(highBit(uint32(v)))
	return nil
}

// fill loads more input, so that at least 32 bits are ready if the input
// has that many left.
func (b *bitReader) fill() {
	if b.bitsRead < 32 {
		return
	}
	if b.off >= 4 {
		low := binary.LittleEndian.Uint32(b.in[b.off-4:])
		b.value = b.value<<32 | uint64(low)
		b.bitsRead -= 32
		b.off -= 4
		return
	}
	for b.off > 0 {
		b.value = b.value<<8 | uint64(b.in[b.off-1])
		b.bitsRead -= 8
		b.off--
	}
}

// readBits returns the next n bits (at most 32). Reading past the start of
// the stream returns zeros and makes overflow report true.
func (b *bitReader) readBits(n uint8) uint32 {
	if n == 0 {
		return 0
	}
	if int(b.bitsRead)+int(n) > 64 {
		b.bitsRead = 65
		return 0
	}
	v := uint32((b.value << b.bitsRead) >> (64 - n))
	b.bitsRead += n
	return v
}

// finished reports whether every bit has been read.
func (b *bitReader) finished() bool {
	return b.off == 0 && b.bitsRead == 64
}

// overflow reports whether a read went past the start of the stream.
func (b *bitReader) overflow() bool {
	return b.bitsRead > 64
}
