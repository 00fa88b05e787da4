package zframe

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/huff0"
)

// encodeLiterals appends the literals sub-block for lits to dst.
func (b *blockEnc) encodeLiterals(dst, lits []byte) []byte {
	n := len(lits)
	if n <= literalNoEntropy {
		return appendRawLiterals(dst, lits)
	}

	out, _, err := huff0.Compress1X(lits, b.litEnc)
	switch {
	case errors.Is(err, huff0.ErrUseRLE):
		if debugEncoder {
			println("literals: rle", n)
		}
		h := uint32(n)<<2 | uint32(literalsBlockRLE)
		return append(dst, byte(h), byte(h>>8), byte(h>>16), lits[0])
	case err != nil:
		if debugEncoder && !errors.Is(err, huff0.ErrIncompressible) {
			println("literals: huff0 error", err)
		}
		return appendRawLiterals(dst, lits)
	case len(out) >= n-minGain(n):
		return appendRawLiterals(dst, lits)
	}

	if debugEncoder {
		printf("literals: %d bytes compressed to %d", n, len(out))
	}
	h := uint64(n)<<2 | uint64(len(out))<<21 | uint64(literalsBlockCompressed)
	dst = append(dst, byte(h), byte(h>>8), byte(h>>16), byte(h>>24), byte(h>>32))
	return append(dst, out...)
}

func appendRawLiterals(dst, lits []byte) []byte {
	h := uint32(len(lits))<<2 | uint32(literalsBlockRaw)
	dst = append(dst, byte(h), byte(h>>8), byte(h>>16))
	return append(dst, lits...)
}

// decodeLiterals reads the literals sub-block at the start of src. It
// returns the literals and the number of bytes of src used. Raw literals
// are returned as a subslice of src.
func (d *blockDec) decodeLiterals(src []byte) (lits []byte, n int, err error) {
	if len(src) < 3 {
		return nil, 0, fmt.Errorf("%w: literals header truncated", ErrSrcSizeWrong)
	}
	h := uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16
	switch literalsBlockType(h & 3) {
	case literalsBlockRaw:
		size := int(h >> 2)
		if size > MaxBlockSize {
			return nil, 0, fmt.Errorf("%w: %d literals", ErrCorruptionDetected, size)
		}
		if len(src) < 3+size {
			return nil, 0, fmt.Errorf("%w: raw literals truncated", ErrSrcSizeWrong)
		}
		return src[3 : 3+size], 3 + size, nil

	case literalsBlockRLE:
		size := int(h >> 2)
		if size > MaxBlockSize {
			return nil, 0, fmt.Errorf("%w: %d literals", ErrCorruptionDetected, size)
		}
		if len(src) < 4 {
			return nil, 0, fmt.Errorf("%w: rle literals truncated", ErrSrcSizeWrong)
		}
		lits = d.litBuf[:size]
		for i := range lits {
			lits[i] = src[3]
		}
		return lits, 4, nil

	case literalsBlockCompressed:
		if len(src) < 5 {
			return nil, 0, fmt.Errorf("%w: literals header truncated", ErrSrcSizeWrong)
		}
		size := int(h&0x1FFFFF) >> 2
		cSize := int(uint32(src[2])>>5 | uint32(src[3])<<3 | uint32(src[4])<<11)
		if size > MaxBlockSize || size == 0 {
			return nil, 0, fmt.Errorf("%w: %d literals", ErrCorruptionDetected, size)
		}
		if len(src) < 5+cSize {
			return nil, 0, fmt.Errorf("%w: compressed literals truncated", ErrSrcSizeWrong)
		}
		payload := src[5 : 5+cSize]
		s, remain, err := huff0.ReadTable(payload, d.huff)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: literals table: %v", ErrCorruptionDetected, err)
		}
		d.huff = s
		lits, err = s.Decoder().Decompress1X(d.litBuf[:0:size], remain)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: literals: %v", ErrCorruptionDetected, err)
		}
		if len(lits) != size {
			return nil, 0, fmt.Errorf("%w: %d literals decoded; header says %d", ErrCorruptionDetected, len(lits), size)
		}
		return lits, 5 + cSize, nil
	}
	return nil, 0, fmt.Errorf("%w: invalid literals block type", ErrCorruptionDetected)
}
