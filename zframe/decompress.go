package zframe

import (
	"encoding/binary"
	"fmt"
)

type decStage int

const (
	decStageMagic decStage = iota
	decStageBlockHeader
	decStageBlock
	decStageDone
)

// A Decompressor decodes frames. It may be reused, but not from more than
// one goroutine at once.
type Decompressor struct {
	stage decStage
	hdr   blockHeader
	block blockDec
}

// NewDecompressor returns a Decompressor ready for a new frame.
func NewDecompressor() *Decompressor {
	d := new(Decompressor)
	d.block.init()
	return d
}

// Reset prepares d for a new frame.
func (d *Decompressor) Reset() {
	d.stage = decStageMagic
	d.hdr = blockHeader{}
}

// NextSrcSize returns the number of bytes the next call to
// DecompressContinue must be given. It is 0 when the frame is complete.
func (d *Decompressor) NextSrcSize() int {
	switch d.stage {
	case decStageMagic:
		return frameHeaderSize
	case decStageBlockHeader:
		return blockHeaderSize
	case decStageBlock:
		return d.hdr.payloadSize()
	}
	return 0
}

// DecompressContinue consumes the next part of a frame, which must be
// exactly NextSrcSize bytes long. Output goes to dst[pos:]; dst[:pos] holds
// the earlier output of the same frame, which matches may refer to. It
// returns the number of bytes written.
func (d *Decompressor) DecompressContinue(dst []byte, pos int, src []byte) (int, error) {
	if len(src) != d.NextSrcSize() {
		return 0, fmt.Errorf("%w: got %d bytes, expected %d", ErrSrcSizeWrong, len(src), d.NextSrcSize())
	}
	switch d.stage {
	case decStageMagic:
		if m := binary.LittleEndian.Uint32(src); m != Magic {
			return 0, fmt.Errorf("%w: magic number %#x", ErrPrefixUnknown, m)
		}
		d.stage = decStageBlockHeader
		return 0, nil

	case decStageBlockHeader:
		h, err := parseBlockHeader(src)
		if err != nil {
			return 0, err
		}
		d.hdr = h
		switch {
		case h.typ == blockTypeEnd:
			d.stage = decStageDone
		case h.typ == blockTypeCompressed && h.size == 0:
			return 0, fmt.Errorf("%w: empty compressed block", ErrCorruptionDetected)
		case h.payloadSize() == 0:
			d.stage = decStageBlockHeader
		default:
			d.stage = decStageBlock
		}
		return 0, nil

	case decStageBlock:
		end, err := d.block.decodeBlock(dst, pos, 0, d.hdr, src)
		if err != nil {
			return 0, err
		}
		d.stage = decStageBlockHeader
		return end - pos, nil
	}
	return 0, fmt.Errorf("%w: frame already complete", ErrSrcSizeWrong)
}

// Decompress decodes every frame in src into dst and returns the total
// decompressed size.
func (d *Decompressor) Decompress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, fmt.Errorf("%w: no frame", ErrSrcSizeWrong)
	}
	total := 0
	for len(src) > 0 {
		d.Reset()
		out := dst[total:]
		pos := 0
		for d.stage != decStageDone {
			need := d.NextSrcSize()
			if len(src) < need {
				return 0, fmt.Errorf("%w: frame truncated", ErrSrcSizeWrong)
			}
			n, err := d.DecompressContinue(out, pos, src[:need])
			if err != nil {
				return 0, err
			}
			pos += n
			src = src[need:]
		}
		total += pos
	}
	return total, nil
}
