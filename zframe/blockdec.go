package zframe

import (
	"fmt"

	"github.com/klauspost/compress/huff0"
)

const (
	// maxCompressedBlockSize is the biggest allowed block payload (128KB)
	maxCompressedBlockSize = MaxBlockSize

	// maxOffsetBits is the largest number of extra bits an offset code may
	// ask for.
	maxOffsetBits = 30
)

// blockHeader is a decoded block header.
type blockHeader struct {
	typ  blockType
	size int // payload size; the run length for rle blocks
}

func parseBlockHeader(b []byte) (blockHeader, error) {
	if len(b) < blockHeaderSize {
		return blockHeader{}, fmt.Errorf("%w: block header truncated", ErrSrcSizeWrong)
	}
	h := blockHeader{
		typ:  blockType(b[0] >> 6),
		size: int(b[0]&0x1F)<<16 | int(b[1])<<8 | int(b[2]),
	}
	switch h.typ {
	case blockTypeEnd:
		h.size = 0
	case blockTypeRLE:
		if h.size > MaxBlockSize {
			return h, fmt.Errorf("%w: rle block of %d bytes", ErrCorruptionDetected, h.size)
		}
	default:
		if h.size > maxCompressedBlockSize {
			return h, fmt.Errorf("%w: %v block of %d bytes", ErrCorruptionDetected, h.typ, h.size)
		}
	}
	return h, nil
}

// payloadSize returns how many bytes follow the header.
func (h blockHeader) payloadSize() int {
	switch h.typ {
	case blockTypeRLE:
		return 1
	case blockTypeEnd:
		return 0
	}
	return h.size
}

// blockDec decodes the payload of blocks.
type blockDec struct {
	litBuf []byte
	huff   *huff0.Scratch

	ll, of, ml fseDecoder
}

func (d *blockDec) init() {
	if d.litBuf == nil {
		d.litBuf = make([]byte, MaxBlockSize)
	}
}

// decodeBlock decodes the payload of a block with header h, appending the
// output to dst[:pos]. dst[base:pos] is the data that matches may refer
// to. It returns the new end of output. Nothing is written past len(dst).
func (d *blockDec) decodeBlock(dst []byte, pos, base int, h blockHeader, payload []byte) (int, error) {
	if len(payload) < h.payloadSize() {
		return pos, fmt.Errorf("%w: block payload truncated", ErrSrcSizeWrong)
	}
	switch h.typ {
	case blockTypeRaw:
		if len(dst)-pos < h.size {
			return pos, ErrDstSizeTooSmall
		}
		return pos + copy(dst[pos:], payload[:h.size]), nil
	case blockTypeRLE:
		if len(dst)-pos < h.size {
			return pos, ErrDstSizeTooSmall
		}
		out := dst[pos : pos+h.size]
		for i := range out {
			out[i] = payload[0]
		}
		return pos + h.size, nil
	case blockTypeCompressed:
		return d.decodeCompressed(dst, pos, base, payload[:h.size])
	}
	return pos, nil
}

func (d *blockDec) decodeCompressed(dst []byte, pos, base int, src []byte) (int, error) {
	d.init()
	lits, n, err := d.decodeLiterals(src)
	if err != nil {
		return pos, err
	}
	src = src[n:]
	if debugDecoder {
		printf("block: %d literals from %d bytes", len(lits), n)
	}

	// Sequence section header
	if len(src) < 3 {
		return pos, fmt.Errorf("%w: sequences header truncated", ErrSrcSizeWrong)
	}
	nbSeq := int(src[0]) | int(src[1])<<8
	if nbSeq > maxSequences {
		return pos, fmt.Errorf("%w: %d sequences", ErrCorruptionDetected, nbSeq)
	}
	ctrl := src[2]
	var dumpsLen int
	if ctrl&2 != 0 {
		if len(src) < 5 {
			return pos, fmt.Errorf("%w: sequences header truncated", ErrSrcSizeWrong)
		}
		dumpsLen = int(src[3])<<8 | int(src[4])
		src = src[5:]
	} else {
		dumpsLen = int(ctrl&1)<<8 | int(src[3])
		src = src[4:]
	}
	if len(src) < dumpsLen {
		return pos, fmt.Errorf("%w: dumps truncated", ErrSrcSizeWrong)
	}
	dumps := src[:dumpsLen]
	src = src[dumpsLen:]

	llMode := seqCompMode(ctrl >> 6)
	ofMode := seqCompMode(ctrl >> 4 & 3)
	mlMode := seqCompMode(ctrl >> 2 & 3)
	for _, t := range []struct {
		mode      seqCompMode
		dec       *fseDecoder
		maxSymbol uint8
		maxLog    uint8
	}{
		{llMode, &d.ll, maxLL, llFSELog},
		{ofMode, &d.of, maxOff, offFSELog},
		{mlMode, &d.ml, maxML, mlFSELog},
	} {
		switch t.mode {
		case compModeRaw:
		case compModeRLE:
			if len(src) < 1 {
				return pos, fmt.Errorf("%w: rle table truncated", ErrSrcSizeWrong)
			}
			if src[0] > t.maxSymbol {
				return pos, fmt.Errorf("%w: rle symbol %d > %d", ErrCorruptionDetected, src[0], t.maxSymbol)
			}
			t.dec.setRLE(src[0])
			src = src[1:]
		case compModeCompressed:
			n, err := t.dec.readNCount(src, t.maxSymbol, t.maxLog)
			if err != nil {
				return pos, err
			}
			if err := t.dec.buildDtable(); err != nil {
				return pos, err
			}
			src = src[n:]
		default:
			return pos, fmt.Errorf("%w: invalid sequence table mode", ErrCorruptionDetected)
		}
	}
	if debugDecoder {
		printf("sequences: %d, modes ll %v of %v ml %v, %d dump bytes", nbSeq, llMode, ofMode, mlMode, dumpsLen)
	}

	var br bitReader
	if err := br.init(src); err != nil {
		return pos, err
	}
	var ll, of, ml decoder
	ll.init(&br, llMode, &d.ll, llBits)
	of.init(&br, ofMode, &d.of, offBits)
	ml.init(&br, mlMode, &d.ml, mlBits)

	rep := [2]int{repStartValue, repStartValue}
	op := pos
	for i := 0; i < nbSeq; i++ {
		br.fill()
		litLen := uint32(ll.next(&br))
		ofCode := of.next(&br)
		br.fill()
		var offset int
		if ofCode == 0 {
			if litLen > 0 {
				offset = rep[0]
			} else {
				offset = rep[1]
			}
		} else {
			if ofCode > maxOffsetBits+1 {
				return pos, fmt.Errorf("%w: offset code %d", ErrCorruptionDetected, ofCode)
			}
			offset = 1<<(ofCode-1) + int(br.readBits(ofCode-1))
		}
		rep[1], rep[0] = rep[0], offset
		br.fill()
		matchLen := uint32(ml.next(&br))
		if br.overflow() {
			return pos, fmt.Errorf("%w: sequence bitstream overread", ErrCorruptionDetected)
		}

		var err error
		if litLen == maxLL {
			if litLen, dumps, err = readDump(dumps, litLen); err != nil {
				return pos, err
			}
		}
		if matchLen == maxML {
			if matchLen, dumps, err = readDump(dumps, matchLen); err != nil {
				return pos, err
			}
		}
		if debugSequences {
			printf("seq %d: litLen %d offset %d matchLen %d", i, litLen, offset, matchLen+MinMatch)
		}

		// Literals
		if int(litLen) > len(lits) {
			return pos, fmt.Errorf("%w: literal length %d with %d literals left", ErrCorruptionDetected, litLen, len(lits))
		}
		if op-pos+int(litLen) > MaxBlockSize {
			return pos, fmt.Errorf("%w: block decodes to more than %d bytes", ErrCorruptionDetected, MaxBlockSize)
		}
		if int(litLen) > len(dst)-op {
			return pos, ErrDstSizeTooSmall
		}
		op += copy(dst[op:], lits[:litLen])
		lits = lits[litLen:]

		// Match
		mLen := int(matchLen) + MinMatch
		if offset <= 0 || offset > op-base {
			return pos, fmt.Errorf("%w: offset %d before start of window (%d bytes)", ErrCorruptionDetected, offset, op-base)
		}
		if op-pos+mLen > MaxBlockSize {
			return pos, fmt.Errorf("%w: block decodes to more than %d bytes", ErrCorruptionDetected, MaxBlockSize)
		}
		if mLen > len(dst)-op {
			return pos, ErrDstSizeTooSmall
		}
		copyMatch(dst, op, offset, mLen)
		op += mLen
	}

	if !br.finished() {
		return pos, fmt.Errorf("%w: sequence bitstream not fully consumed", ErrCorruptionDetected)
	}

	// Last literals
	if op-pos+len(lits) > MaxBlockSize {
		return pos, fmt.Errorf("%w: block decodes to more than %d bytes", ErrCorruptionDetected, MaxBlockSize)
	}
	if len(lits) > len(dst)-op {
		return pos, ErrDstSizeTooSmall
	}
	op += copy(dst[op:], lits)
	return op, nil
}

// Constants for copying a match that overlaps its own output: after the
// first 8 bytes, the source is moved back so the distance is at least 8.
var (
	dec32table = [8]int{0, 1, 2, 1, 4, 4, 4, 4}   // added
	dec64table = [8]int{8, 8, 8, 7, 8, 9, 10, 11} // subtracted
)

// copyMatch copies length bytes from offset bytes before op to op.
// dst must have room for them.
func copyMatch(dst []byte, op, offset, length int) {
	m := op - offset
	end := op + length
	if length < 8 {
		for ; op < end; op, m = op+1, m+1 {
			dst[op] = dst[m]
		}
		return
	}

	if offset < 8 {
		dst[op] = dst[m]
		dst[op+1] = dst[m+1]
		dst[op+2] = dst[m+2]
		dst[op+3] = dst[m+3]
		m += dec32table[offset]
		for i := 0; i < 4; i++ {
			dst[op+4+i] = dst[m+i]
		}
		m -= dec64table[offset]
	} else {
		copy(dst[op:op+8], dst[m:m+8])
	}
	op += 8
	m += 8

	for op < end {
		n := copy(dst[op:min(end, op+(op-m))], dst[m:])
		op += n
		m += n
	}
}
