package zframe

type streamStage int

const (
	stageInit streamStage = iota
	stageLoad
	stageFlush
	stageReadHeader
	stageRead
)

func (s streamStage) String() string {
	switch s {
	case stageInit:
		return "init"
	case stageLoad:
		return "load"
	case stageFlush:
		return "flush"
	case stageReadHeader:
		return "readHeader"
	case stageRead:
		return "read"
	}
	return "unknown"
}

// A StreamCompressor compresses a stream passed in chunks of any size.
// It keeps up to one block of input and one block of output buffered.
type StreamCompressor struct {
	c     *Compressor
	stage streamStage

	blockSize int

	// inBuf holds the window and the block being filled, which is
	// inBuf[inStart:inPos]. The block is compressed when inPos reaches
	// inTarget.
	inBuf    []byte
	inStart  int
	inPos    int
	inTarget int

	// outBuf[outStart:outEnd] is compressed data waiting to be copied out.
	outBuf   []byte
	outStart int
	outEnd   int

	endWritten bool
}

// NewStreamCompressor returns a StreamCompressor. Init must be called
// before it is used.
func NewStreamCompressor() *StreamCompressor {
	return &StreamCompressor{c: NewCompressor()}
}

// Init starts a new frame at the given level.
func (z *StreamCompressor) Init(level int) error {
	return z.InitParams(LevelParams(level, 0))
}

// InitParams starts a new frame with explicit parameters.
func (z *StreamCompressor) InitParams(p Params) error {
	if err := z.c.Begin(p); err != nil {
		z.stage = stageInit
		return err
	}
	z.blockSize = MaxBlockSize
	inSize := 1<<p.WindowLog + z.blockSize
	if cap(z.inBuf) < inSize {
		z.inBuf = make([]byte, inSize)
	}
	z.inBuf = z.inBuf[:inSize]
	outSize := frameHeaderSize + CompressBound(z.blockSize)
	if cap(z.outBuf) < outSize {
		z.outBuf = make([]byte, outSize)
	}
	z.outBuf = z.outBuf[:outSize]

	z.inStart, z.inPos, z.inTarget = 0, 0, z.blockSize
	z.outStart, z.outEnd = 0, 0
	z.endWritten = false
	z.stage = stageLoad
	return nil
}

// RecommendedInSize returns the input chunk size that fills exactly one
// block.
func (z *StreamCompressor) RecommendedInSize() int {
	return MaxBlockSize
}

// RecommendedOutSize returns an output buffer size that always has room
// for a whole compressed block, so it is never staged internally.
func (z *StreamCompressor) RecommendedOutSize() int {
	return frameHeaderSize + CompressBound(MaxBlockSize)
}

// Continue compresses as much of src as it can, writing output to dst.
// It returns the number of bytes written and read, and a hint of how many
// more bytes of input would complete the current block.
func (z *StreamCompressor) Continue(dst, src []byte) (written, read, hint int, err error) {
	if z.stage == stageInit {
		return 0, 0, 0, ErrInitMissing
	}
	written, read, err = z.compress(dst, src, false)
	hint = z.inTarget - z.inPos
	if hint == 0 {
		hint = z.blockSize
	}
	return written, read, hint, err
}

// Flush compresses whatever input is buffered, even if it is less than a
// block, and copies as much compressed data to dst as fits. remaining is
// the number of bytes still waiting to be flushed.
func (z *StreamCompressor) Flush(dst []byte) (written, remaining int, err error) {
	if z.stage == stageInit {
		return 0, 0, ErrInitMissing
	}
	written, _, err = z.compress(dst, nil, true)
	return written, z.pending(), err
}

// End flushes buffered data and writes the end of the frame. If
// remaining is not 0, End must be called again with more room in dst.
// When it returns 0, the StreamCompressor must be initialized again
// before further use.
func (z *StreamCompressor) End(dst []byte) (written, remaining int, err error) {
	if z.stage == stageInit {
		return 0, 0, ErrInitMissing
	}
	written, _, err = z.compress(dst, nil, true)
	if err != nil {
		return written, z.pending(), err
	}
	if z.pending() == 0 && !z.endWritten {
		n, err := z.c.End(z.outBuf)
		if err != nil {
			return written, z.pending(), err
		}
		z.outStart, z.outEnd = 0, n
		z.endWritten = true
		z.stage = stageFlush
		n2, _, err := z.compress(dst[written:], nil, true)
		written += n2
		if err != nil {
			return written, z.pending(), err
		}
	}
	remaining = z.pending()
	if remaining == 0 && z.endWritten {
		z.stage = stageInit
	}
	return written, remaining, nil
}

func (z *StreamCompressor) pending() int {
	return z.outEnd - z.outStart + z.inPos - z.inStart
}

// compress runs the load and flush stages until it runs out of input or
// output space. With flush set, a partial block is compressed too.
func (z *StreamCompressor) compress(dst, src []byte, flush bool) (written, read int, err error) {
	for {
		switch z.stage {
		case stageLoad:
			n := copy(z.inBuf[z.inPos:z.inTarget], src[read:])
			z.inPos += n
			read += n
			if z.inPos < z.inTarget && !flush {
				return written, read, nil
			}
			if z.inPos == z.inStart {
				return written, read, nil
			}

			block := z.inBuf[z.inStart:z.inPos]
			if out := dst[written:]; len(out) >= frameHeaderSize+CompressBound(len(block)) {
				n, err := z.c.Continue(out, block)
				if err != nil {
					return written, read, err
				}
				written += n
				z.outStart, z.outEnd = 0, 0
			} else {
				n, err := z.c.Continue(z.outBuf, block)
				if err != nil {
					return written, read, err
				}
				z.outStart, z.outEnd = 0, n
			}
			if debugEncoder {
				printf("stream: block of %d bytes, %d staged", len(block), z.outEnd)
			}

			z.inStart = z.inPos
			z.inTarget = z.inPos + z.blockSize
			if z.inTarget > len(z.inBuf) {
				// Wrap around, overwriting the oldest part of the window.
				z.inStart, z.inPos, z.inTarget = 0, 0, z.blockSize
			}
			z.stage = stageFlush

		case stageFlush:
			n := copy(dst[written:], z.outBuf[z.outStart:z.outEnd])
			written += n
			z.outStart += n
			if z.outStart < z.outEnd {
				return written, read, nil
			}
			z.outStart, z.outEnd = 0, 0
			if z.endWritten {
				return written, read, nil
			}
			z.stage = stageLoad

		default:
			return written, read, ErrInitMissing
		}
	}
}
