package lz4

import (
	"encoding/binary"
	"hash"

	"github.com/andybalholm/zpack"
	"github.com/pierrec/xxHash/xxHash32"
)

const frameMagic = 0x184D2204

// A FrameEncoder implements the zpack.Encoder interface, writing in the
// LZ4 frame format with linked 4 MB blocks and a content checksum. Blocks
// that don't compress are stored uncompressed.
type FrameEncoder struct {
	hasher hash.Hash32
	block  []byte
}

func (f *FrameEncoder) Header(dst []byte) []byte {
	f.hasher = xxHash32.New(0)
	dst = binary.LittleEndian.AppendUint32(dst, frameMagic)
	// FLG: version 01, content checksum. BD: 4 MB blocks.
	flg, bd := byte(0x44), byte(0x70)
	// The header checksum is the second byte of the xxHash32 of the
	// descriptor.
	hc := byte(xxHash32.Checksum([]byte{flg, bd}, 0) >> 8)
	return append(dst, flg, bd, hc)
}

func (f *FrameEncoder) Reset() {
	f.hasher = nil
}

func (f *FrameEncoder) Encode(dst []byte, src []byte, matches []zpack.Match, lastBlock bool) []byte {
	if f.hasher == nil {
		dst = f.Header(dst)
	}

	if len(src) > 0 {
		f.block = appendBlock(f.block[:0], src, matches)
		if len(f.block) < len(src) {
			dst = binary.LittleEndian.AppendUint32(dst, uint32(len(f.block)))
			dst = append(dst, f.block...)
		} else {
			dst = binary.LittleEndian.AppendUint32(dst, uint32(len(src))|1<<31)
			dst = append(dst, src...)
		}
		f.hasher.Write(src)
	}

	if lastBlock {
		dst = append(dst, 0, 0, 0, 0)
		dst = binary.LittleEndian.AppendUint32(dst, f.hasher.Sum32())
	}
	return dst
}
