package zframe

import (
	"encoding/binary"

	"github.com/andybalholm/zpack"
)

// Encoder writes frames from the output of any zpack.MatchFinder, for use
// with zpack.Writer. Blocks must be at most MaxBlockSize bytes, and
// matches must not reach back more than 1<<WindowLogMax bytes.
type Encoder struct {
	block *blockEnc
}

func (e *Encoder) Header(dst []byte) []byte {
	return binary.LittleEndian.AppendUint32(dst, Magic)
}

func (e *Encoder) Encode(dst []byte, src []byte, matches []zpack.Match, lastBlock bool) []byte {
	if e.block == nil {
		e.block = new(blockEnc)
		e.block.init()
	}
	if len(src) > 0 {
		dst = e.block.encode(dst, src, matches)
	}
	if lastBlock {
		dst = appendBlockHeader(dst, blockTypeEnd, 0)
	}
	return dst
}

func (e *Encoder) Reset() {}
