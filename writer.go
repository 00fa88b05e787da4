package zpack

import (
	"errors"
	"io"
)

// ErrClosed is returned by Writer.Write after Close.
var ErrClosed = errors.New("zpack: write to closed Writer")

// A Writer uses MatchFinder and Encoder to write compressed data to Dest.
type Writer struct {
	Dest        io.Writer
	MatchFinder MatchFinder
	Encoder     Encoder

	// BlockSize is the number of bytes to compress at a time.
	// The default is 1<<16.
	BlockSize int

	// The match finder may refer back into the previous block, so two
	// buffers take turns holding the block being filled.
	inBuf   []byte
	spare   []byte
	outBuf  []byte
	matches []Match

	wroteHeader bool
	closed      bool
	err         error
}

func (w *Writer) init() {
	if w.BlockSize == 0 {
		w.BlockSize = 1 << 16
	}
	if cap(w.inBuf) < w.BlockSize {
		w.inBuf = make([]byte, 0, w.BlockSize)
		w.spare = make([]byte, 0, w.BlockSize)
	}
}

func (w *Writer) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	if w.closed {
		return 0, ErrClosed
	}
	w.init()

	for len(p) > 0 {
		c := copy(w.inBuf[len(w.inBuf):w.BlockSize], p)
		w.inBuf = w.inBuf[:len(w.inBuf)+c]
		p = p[c:]
		n += c
		if len(w.inBuf) == w.BlockSize {
			if err := w.writeBlock(false); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// writeBlock compresses the contents of inBuf and writes them to Dest.
func (w *Writer) writeBlock(lastBlock bool) error {
	w.outBuf = w.outBuf[:0]
	if !w.wroteHeader {
		w.outBuf = w.Encoder.Header(w.outBuf)
		w.wroteHeader = true
	}

	w.matches = w.MatchFinder.FindMatches(w.matches[:0], w.inBuf)
	w.outBuf = w.Encoder.Encode(w.outBuf, w.inBuf, w.matches, lastBlock)
	w.inBuf, w.spare = w.spare[:0], w.inBuf

	if len(w.outBuf) > 0 {
		if _, err := w.Dest.Write(w.outBuf); err != nil {
			w.err = err
			return err
		}
	}
	return nil
}

// Close compresses any buffered data, finishes the stream, and flushes it to
// Dest. It does not close Dest.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return nil
	}
	w.init()
	w.closed = true
	return w.writeBlock(true)
}

// Reset discards the Writer's state and makes it equivalent to the result of
// its original state from NewWriter, but writing to newDest instead.
func (w *Writer) Reset(newDest io.Writer) {
	w.Dest = newDest
	w.inBuf = w.inBuf[:0]
	w.spare = w.spare[:0]
	w.wroteHeader = false
	w.closed = false
	w.err = nil
	w.MatchFinder.Reset()
	w.Encoder.Reset()
}
