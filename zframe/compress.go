package zframe

import (
	"encoding/binary"
	"sync"

	"github.com/andybalholm/zpack"
)

// A Compressor holds the state for compressing frames. It may be reused
// for any number of frames, but not from more than one goroutine at once.
type Compressor struct {
	params Params
	mf     zpack.MatchFinder

	block   blockEnc
	matches []zpack.Match
	scratch []byte

	begun       bool
	wroteHeader bool
}

// NewCompressor returns a Compressor ready for Begin or Compress.
func NewCompressor() *Compressor {
	c := new(Compressor)
	c.block.init()
	return c
}

// Begin starts a new frame compressed with p. Continue adds data to it and
// End finishes it.
func (c *Compressor) Begin(p Params) error {
	if err := p.check(); err != nil {
		return err
	}
	if c.block.litEnc == nil {
		c.block.init()
	}
	if c.mf != nil && p == c.params {
		c.mf.Reset()
	} else {
		c.mf = p.matchFinder()
	}
	c.params = p
	c.begun = true
	c.wroteHeader = false
	return nil
}

// Continue compresses src as the next part of the frame and writes the
// result to dst, returning the number of bytes written. The magic number is
// written before the first block. If dst is too small, nothing is written,
// and Continue may be called again with the same src and a larger dst;
// the frame stays valid, but its next block can't refer to earlier data.
//
// The data passed to the previous call must be left in place until the next
// call, since later blocks may refer to it. Data passed before that may be
// referred to as well if it immediately precedes it in memory.
func (c *Compressor) Continue(dst, src []byte) (int, error) {
	if !c.begun {
		return 0, ErrInitMissing
	}
	out := c.scratch[:0]
	if !c.wroteHeader {
		out = binary.LittleEndian.AppendUint32(out, Magic)
	}
	for len(src) > 0 {
		n := min(len(src), MaxBlockSize)
		block := src[:n]
		src = src[n:]
		c.matches = c.mf.FindMatches(c.matches[:0], block)
		out = c.block.encode(out, block, c.matches)
	}
	c.scratch = out[:0]
	if len(out) > len(dst) {
		// The match finder has already seen src, but the decoder won't.
		// Later blocks must not refer to it or to anything before it.
		c.mf.Reset()
		return 0, ErrDstSizeTooSmall
	}
	c.wroteHeader = true
	return copy(dst, out), nil
}

// End finishes the frame, writing the end block to dst.
func (c *Compressor) End(dst []byte) (int, error) {
	if !c.begun {
		return 0, ErrInitMissing
	}
	var buf [frameHeaderSize + blockHeaderSize]byte
	out := buf[:0]
	if !c.wroteHeader {
		out = binary.LittleEndian.AppendUint32(out, Magic)
	}
	out = appendBlockHeader(out, blockTypeEnd, 0)
	if len(out) > len(dst) {
		return 0, ErrDstSizeTooSmall
	}
	c.begun = false
	return copy(dst, out), nil
}

// Compress compresses src into a complete frame in dst at the given level,
// and returns the compressed size. dst should be at least
// CompressBound(len(src)) bytes long.
func (c *Compressor) Compress(dst, src []byte, level int) (int, error) {
	return c.CompressParams(dst, src, LevelParams(level, len(src)))
}

// CompressParams is like Compress, but with explicit parameters.
func (c *Compressor) CompressParams(dst, src []byte, p Params) (int, error) {
	if err := c.Begin(p); err != nil {
		return 0, err
	}
	n, err := c.Continue(dst, src)
	if err != nil {
		c.begun = false
		return 0, err
	}
	m, err := c.End(dst[n:])
	if err != nil {
		return 0, err
	}
	return n + m, nil
}

var (
	compressorPool   sync.Pool
	decompressorPool sync.Pool
)

// Compress compresses src into a frame in dst, using a pooled Compressor.
func Compress(dst, src []byte, level int) (int, error) {
	c, _ := compressorPool.Get().(*Compressor)
	if c == nil {
		c = NewCompressor()
	}
	defer compressorPool.Put(c)
	return c.Compress(dst, src, level)
}

// Decompress decodes the frames in src into dst, using a pooled
// Decompressor.
func Decompress(dst, src []byte) (int, error) {
	d, _ := decompressorPool.Get().(*Decompressor)
	if d == nil {
		d = NewDecompressor()
	}
	defer decompressorPool.Put(d)
	return d.Decompress(dst, src)
}
