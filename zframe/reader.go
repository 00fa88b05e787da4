package zframe

import "io"

// A Reader decompresses a stream of one or more frames.
type Reader struct {
	r   io.Reader
	z   *StreamDecompressor
	in  []byte
	pos int
	end int
	err error
}

// NewReader returns a Reader that decompresses the data from r.
func NewReader(r io.Reader) *Reader {
	zr := &Reader{z: NewStreamDecompressor()}
	zr.Reset(r)
	return zr
}

// Reset discards the Reader's state and makes it read from r.
func (r *Reader) Reset(src io.Reader) {
	r.r = src
	r.z.Init()
	if r.in == nil {
		r.in = make([]byte, r.z.RecommendedInSize())
	}
	r.pos, r.end = 0, 0
	r.err = nil
}

func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		written, read, _, err := r.z.Continue(p, r.in[r.pos:r.end])
		r.pos += read
		if err != nil {
			r.err = err
			return written, err
		}
		if written > 0 {
			return written, nil
		}
		if r.pos < r.end {
			continue
		}
		if r.err != nil {
			return 0, r.err
		}

		n, err := r.r.Read(r.in)
		r.pos, r.end = 0, n
		if err == io.EOF {
			if n > 0 {
				continue
			}
			if r.z.stage != stageReadHeader || r.z.d.stage == decStageMagic {
				// The stream ends in the middle of a frame, or has none.
				r.err = io.ErrUnexpectedEOF
			} else {
				r.err = io.EOF
			}
			return 0, r.err
		}
		if err != nil {
			r.err = err
			if n == 0 {
				return 0, err
			}
		}
	}
}
