package zframe

// A StreamDecompressor decodes a stream of frames passed in chunks of any
// size.
type StreamDecompressor struct {
	d     *Decompressor
	stage streamStage

	// inBuf collects a header or block body that arrived in pieces.
	inBuf []byte
	inPos int

	// outBuf holds the window followed by decoded data not yet copied out,
	// which is outBuf[outStart:outEnd].
	outBuf   []byte
	outStart int
	outEnd   int
}

// NewStreamDecompressor returns a StreamDecompressor. Init must be called
// before it is used.
func NewStreamDecompressor() *StreamDecompressor {
	return &StreamDecompressor{d: NewDecompressor()}
}

// Init prepares z for a new stream.
func (z *StreamDecompressor) Init() error {
	if z.inBuf == nil {
		z.inBuf = make([]byte, MaxBlockSize+blockHeaderSize)
		z.outBuf = make([]byte, 2<<WindowLogMax+MaxBlockSize)
	}
	z.d.Reset()
	z.inPos = 0
	z.outStart, z.outEnd = 0, 0
	z.stage = stageReadHeader
	return nil
}

// RecommendedInSize returns an input chunk size that holds a whole block
// with its header.
func (z *StreamDecompressor) RecommendedInSize() int {
	return MaxBlockSize + blockHeaderSize
}

// RecommendedOutSize returns the size of the largest decoded block.
func (z *StreamDecompressor) RecommendedOutSize() int {
	return MaxBlockSize
}

// Continue decodes as much of src as it can, writing output to dst. It
// returns the number of bytes written and read, and a hint of how many
// more bytes of input are needed for the next step. The hint is 0 when
// a frame has just been completed and everything has been written out.
func (z *StreamDecompressor) Continue(dst, src []byte) (written, read, hint int, err error) {
	if z.stage == stageInit {
		return 0, 0, 0, ErrInitMissing
	}
	for {
		switch z.stage {
		case stageReadHeader:
			// Start of a frame. Earlier frames can't be referred to.
			if len(src) == read {
				if z.d.stage == decStageDone {
					return written, read, 0, nil
				}
				return written, read, frameHeaderSize, nil
			}
			z.d.Reset()
			z.outStart, z.outEnd = 0, 0
			z.stage = stageRead

		case stageRead:
			if z.d.stage == decStageDone {
				z.stage = stageReadHeader
				continue
			}
			need := z.d.NextSrcSize()
			if z.inPos == 0 && len(src)-read >= need {
				// The whole unit is available in src.
				if err := z.decode(src[read : read+need]); err != nil {
					return written, read, 0, err
				}
				read += need
				continue
			}
			z.stage = stageLoad

		case stageLoad:
			need := z.d.NextSrcSize()
			n := copy(z.inBuf[z.inPos:need], src[read:])
			z.inPos += n
			read += n
			if z.inPos < need {
				return written, read, need - z.inPos, nil
			}
			if err := z.decode(z.inBuf[:need]); err != nil {
				return written, read, 0, err
			}
			z.inPos = 0

		case stageFlush:
			n := copy(dst[written:], z.outBuf[z.outStart:z.outEnd])
			written += n
			z.outStart += n
			if z.outStart < z.outEnd {
				return written, read, z.d.NextSrcSize(), nil
			}
			z.stage = stageRead

		default:
			return written, read, 0, ErrInitMissing
		}
	}
}

// decode passes one unit to the Decompressor, sliding the window first if
// a block might not fit, and moves to the flush stage if it produced
// output.
func (z *StreamDecompressor) decode(src []byte) error {
	if len(z.outBuf)-z.outEnd < MaxBlockSize {
		keep := min(z.outEnd, 1<<WindowLogMax)
		copy(z.outBuf, z.outBuf[z.outEnd-keep:z.outEnd])
		z.outStart -= z.outEnd - keep
		z.outEnd = keep
	}
	n, err := z.d.DecompressContinue(z.outBuf, z.outEnd, src)
	if err != nil {
		return err
	}
	if debugDecoder && n > 0 {
		printf("stream: decoded %d bytes", n)
	}
	z.outEnd += n
	if n > 0 {
		z.stage = stageFlush
	} else {
		z.stage = stageRead
	}
	return nil
}
