package zframe

import "fmt"

// bitWriter writes bits to a byte slice, least significant bit first.
// Streams written by it are read back to front by bitReader.
// It never writes past cap(out) of the slice it was reset with.
type bitWriter struct {
	bitContainer uint64
	nBits        uint8
	out          []byte
	overflow     bool
}

// reset prepares b to append to out, which must have room for the whole
// stream in its capacity.
func (b *bitWriter) reset(out []byte) {
	b.bitContainer = 0
	b.nBits = 0
	b.out = out
	b.overflow = false
}

// addBits adds the low bits of value (at most 32 of them).
func (b *bitWriter) addBits(value uint32, bits uint8) {
	if b.nBits >= 32 {
		b.flush32()
	}
	b.bitContainer |= (uint64(value) & (1<<bits - 1)) << (b.nBits & 63)
	b.nBits += bits
}

// flush32 writes 32 bits if there are at least that many buffered.
func (b *bitWriter) flush32() {
	if b.nBits < 32 {
		return
	}
	v := uint32(b.bitContainer)
	b.write(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	b.bitContainer >>= 32
	b.nBits -= 32
}

// flushAlign writes every buffered bit, padding the last byte with zeros.
func (b *bitWriter) flushAlign() {
	nbBytes := (b.nBits + 7) >> 3
	for i := uint8(0); i < nbBytes; i++ {
		b.write(byte(b.bitContainer >> (i * 8)))
	}
	b.nBits = 0
	b.bitContainer = 0
}

func (b *bitWriter) write(p ...byte) {
	if b.overflow {
		return
	}
	if len(b.out)+len(p) > cap(b.out) {
		b.overflow = true
		return
	}
	b.out = append(b.out, p...)
}

// close writes the end-of-stream marker and flushes everything.
func (b *bitWriter) close() error {
	b.addBits(1, 1)
	b.flushAlign()
	if b.overflow {
		return fmt.Errorf("%w: bitstream needs more than %d bytes", ErrDstSizeTooSmall, cap(b.out))
	}
	return nil
}
