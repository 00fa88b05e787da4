package zframe

import (
	"io"

	"github.com/andybalholm/zpack"
)

// A Writer compresses data written to it into a frame.
type Writer struct {
	w      io.Writer
	z      *StreamCompressor
	level  int
	buf    []byte
	err    error
	closed bool
}

// NewWriter returns a Writer that writes a frame compressed at level to w.
// Close must be called to finish the frame.
func NewWriter(w io.Writer, level int) *Writer {
	zw := &Writer{
		z:     NewStreamCompressor(),
		level: level,
	}
	zw.Reset(w)
	return zw
}

// Reset discards the Writer's state and starts a new frame written to w.
func (w *Writer) Reset(dst io.Writer) {
	w.w = dst
	w.err = w.z.Init(w.level)
	w.closed = false
	if w.buf == nil {
		w.buf = make([]byte, w.z.RecommendedOutSize())
	}
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if w.closed {
		return 0, zpack.ErrClosed
	}
	n := 0
	for len(p) > 0 {
		written, read, _, err := w.z.Continue(w.buf, p)
		n += read
		p = p[read:]
		if err := w.output(written, err); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Flush compresses any buffered data and writes it to the underlying
// writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return nil
	}
	for {
		written, remaining, err := w.z.Flush(w.buf)
		if err := w.output(written, err); err != nil {
			return err
		}
		if remaining == 0 {
			return nil
		}
	}
}

// Close finishes the frame. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return nil
	}
	for {
		written, remaining, err := w.z.End(w.buf)
		if err := w.output(written, err); err != nil {
			return err
		}
		if remaining == 0 {
			w.closed = true
			return nil
		}
	}
}

func (w *Writer) output(n int, err error) error {
	if err != nil {
		w.err = err
		return err
	}
	if n > 0 {
		if _, err := w.w.Write(w.buf[:n]); err != nil {
			w.err = err
			return err
		}
	}
	return nil
}
