package zframe

import (
	"fmt"

	"github.com/andybalholm/zpack"
	"github.com/klauspost/compress/huff0"
)

// blockEnc turns a block of input and its matches into an encoded block.
type blockEnc struct {
	litEnc *huff0.Scratch
	seqs   seqStore

	llEnc, ofEnc, mlEnc fseEncoder
	codes               []uint8

	// payload is scratch space for the compressed payload.
	payload []byte
}

func (b *blockEnc) init() {
	b.litEnc = &huff0.Scratch{Reuse: huff0.ReusePolicyNone}
	b.seqs.init()
	b.codes = make([]uint8, 0, maxSequences)
	b.payload = make([]byte, 0, MaxBlockSize+blockHeaderSize)
}

func appendBlockHeader(dst []byte, t blockType, size int) []byte {
	return append(dst, byte(size>>16)&0x1F|byte(t)<<6, byte(size>>8), byte(size))
}

// isRLE reports whether src is a run of one byte value.
func isRLE(src []byte) bool {
	if len(src) < 2 {
		return false
	}
	for _, c := range src[1:] {
		if c != src[0] {
			return false
		}
	}
	return true
}

// encode appends the block for src, using matches, to dst.
func (b *blockEnc) encode(dst, src []byte, matches []zpack.Match) []byte {
	if len(src) > MaxBlockSize {
		panic(fmt.Sprintf("zframe: block of %d bytes is larger than %d", len(src), MaxBlockSize))
	}
	if b.litEnc == nil {
		b.init()
	}
	if isRLE(src) {
		if debugEncoder {
			println("block: rle", len(src))
		}
		dst = appendBlockHeader(dst, blockTypeRLE, len(src))
		return append(dst, src[0])
	}

	b.seqs.reset()
	pos := 0
	for _, m := range matches {
		if m.Length == 0 {
			b.seqs.storeLastLiterals(src[pos : pos+m.Unmatched])
			pos += m.Unmatched
			continue
		}
		b.seqs.store(src[pos:pos+m.Unmatched], m.Distance, m.Length)
		pos += m.Unmatched + m.Length
	}
	if pos != len(src) {
		panic(fmt.Sprintf("zframe: matches cover %d bytes of a %d-byte block", pos, len(src)))
	}

	payload, err := b.compressPayload(b.payload[:0], len(src))
	b.payload = payload[:0]
	if err != nil || len(payload) >= len(src)-minGain(len(src)) {
		if debugEncoder {
			printf("block: raw %d (compressed %d, err %v)", len(src), len(payload), err)
		}
		dst = appendBlockHeader(dst, blockTypeRaw, len(src))
		return append(dst, src...)
	}
	if debugEncoder {
		printf("block: %d bytes compressed to %d, %d sequences", len(src), len(payload), len(b.seqs.sequences))
	}
	dst = appendBlockHeader(dst, blockTypeCompressed, len(payload))
	return append(dst, payload...)
}

// compressPayload appends the literals and sequences sections to dst.
// The result is abandoned if it grows to srcSize bytes.
func (b *blockEnc) compressPayload(dst []byte, srcSize int) ([]byte, error) {
	s := &b.seqs
	dst = b.encodeLiterals(dst, s.literals)

	nbSeq := len(s.sequences)
	dst = append(dst, byte(nbSeq), byte(nbSeq>>8))

	ctrl := len(dst)
	if dl := len(s.dumps); dl < 512 {
		dst = append(dst, byte(dl>>8), byte(dl))
	} else {
		dst = append(dst, 2, byte(dl>>8), byte(dl))
	}
	dst = append(dst, s.dumps...)

	type stream struct {
		enc    *fseEncoder
		bits   uint8
		maxLog uint8
		code   func(seq) uint8
		mode   seqCompMode
		shift  uint
		state  cState
	}
	streams := [3]stream{
		{enc: &b.llEnc, bits: llBits, maxLog: llFSELog, code: func(s seq) uint8 { return s.llCode }, shift: 6},
		{enc: &b.ofEnc, bits: offBits, maxLog: offFSELog, code: func(s seq) uint8 { return s.ofCode }, shift: 4},
		{enc: &b.mlEnc, bits: mlBits, maxLog: mlFSELog, code: func(s seq) uint8 { return s.mlCode }, shift: 2},
	}
	for i := range streams {
		st := &streams[i]
		b.codes = b.codes[:0]
		for _, sq := range s.sequences {
			b.codes = append(b.codes, st.code(sq))
		}
		st.enc.histogram(b.codes)
		st.mode = st.enc.chooseMode(nbSeq, uint(st.bits))
		switch st.mode {
		case compModeRLE:
			dst = append(dst, b.codes[0])
		case compModeCompressed:
			tableLog := st.enc.optimalTableLog(nbSeq, st.maxLog)
			if err := st.enc.normalizeCount(nbSeq, tableLog); err != nil {
				return dst, err
			}
			if err := st.enc.buildCTable(); err != nil {
				return dst, err
			}
			dst = st.enc.writeCount(dst)
			st.state.init(st.enc)
		}
		dst[ctrl] |= byte(st.mode) << st.shift
		if debugEncoder {
			printf("stream %d: %v", i, st.mode)
		}
	}

	if len(dst) >= srcSize {
		return dst, ErrDstSizeTooSmall
	}

	var bw bitWriter
	bw.reset(dst[len(dst):len(dst):srcSize])
	ll, of, ml := &streams[0], &streams[1], &streams[2]
	encodeSym := func(st *stream, sym uint8) {
		switch st.mode {
		case compModeRaw:
			bw.addBits(uint32(sym), st.bits)
		case compModeCompressed:
			st.state.encode(&bw, sym)
		}
	}
	for i := nbSeq - 1; i >= 0; i-- {
		sq := s.sequences[i]
		encodeSym(ml, sq.mlCode)
		if sq.ofCode > 1 {
			bw.addBits(sq.offset-1<<(sq.ofCode-1), sq.ofCode-1)
		}
		encodeSym(of, sq.ofCode)
		encodeSym(ll, sq.llCode)
	}
	for _, st := range []*stream{ml, of, ll} {
		if st.mode == compModeCompressed {
			st.state.flush(&bw)
		}
	}
	if err := bw.close(); err != nil {
		return dst, err
	}
	return dst[:len(dst)+len(bw.out)], nil
}
