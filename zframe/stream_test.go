package zframe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"
	"testing/iotest"

	"github.com/andybalholm/zpack"
)

func streamCompress(t *testing.T, z *StreamCompressor, data []byte, inChunk, outChunk int) []byte {
	t.Helper()
	var result []byte
	out := make([]byte, outChunk)
	for len(data) > 0 {
		n := min(inChunk, len(data))
		written, read, hint, err := z.Continue(out, data[:n])
		if err != nil {
			t.Fatal(err)
		}
		if hint <= 0 || hint > MaxBlockSize {
			t.Fatalf("hint = %d", hint)
		}
		result = append(result, out[:written]...)
		data = data[read:]
	}
	for {
		written, remaining, err := z.End(out)
		if err != nil {
			t.Fatal(err)
		}
		result = append(result, out[:written]...)
		if remaining == 0 {
			return result
		}
	}
}

func streamDecompress(t *testing.T, src []byte, inChunk, outChunk int) []byte {
	t.Helper()
	z := NewStreamDecompressor()
	if err := z.Init(); err != nil {
		t.Fatal(err)
	}
	var result []byte
	out := make([]byte, outChunk)
	for {
		n := min(inChunk, len(src))
		written, read, hint, err := z.Continue(out, src[:n])
		if err != nil {
			t.Fatal(err)
		}
		result = append(result, out[:written]...)
		src = src[read:]
		if len(src) == 0 && written == 0 {
			if hint != 0 {
				t.Fatalf("stream ended while %d more bytes were expected", hint)
			}
			return result
		}
	}
}

func TestStreamRoundTrip(t *testing.T) {
	data := textData(400000, 20)
	whole := make([]byte, CompressBound(len(data)))
	for _, c := range []struct{ in, out int }{
		{1, 1 << 20},
		{7, 13},
		{1000, 1},
		{65536, 64 << 10},
		{len(data), 1 << 20},
	} {
		t.Run(fmt.Sprintf("in%d/out%d", c.in, c.out), func(t *testing.T) {
			input := data
			if c.in == 1 || c.out == 1 {
				input = data[:150000]
			}
			z := NewStreamCompressor()
			if err := z.Init(5); err != nil {
				t.Fatal(err)
			}
			compressed := streamCompress(t, z, input, c.in, c.out)

			n, err := Decompress(whole, compressed)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(whole[:n], input) {
				t.Fatal("one-shot decoding of streamed output doesn't match")
			}

			for _, d := range []struct{ in, out int }{{1, 100}, {333, 1}, {1 << 20, 1 << 20}} {
				if d.in == 1 && len(compressed) > 100000 {
					continue
				}
				got := streamDecompress(t, compressed, d.in, d.out)
				if !bytes.Equal(got, input) {
					t.Fatalf("streaming decode (in %d, out %d) doesn't match", d.in, d.out)
				}
			}
		})
	}
}

func TestStreamDecompressOneShotOutput(t *testing.T) {
	data := textData(300000, 21)
	buf := make([]byte, CompressBound(len(data)))
	n, err := Compress(buf, data, 9)
	if err != nil {
		t.Fatal(err)
	}
	for _, in := range []int{2, 999, 4096, n} {
		got := streamDecompress(t, buf[:n], in, 3000)
		if !bytes.Equal(got, data) {
			t.Fatalf("chunks of %d: mismatch", in)
		}
	}
}

func TestStreamSmallWindow(t *testing.T) {
	data := textData(700000, 22)
	for _, windowLog := range []int{WindowLogMin, 17} {
		for _, s := range []Strategy{StrategyFast, StrategyLazy} {
			t.Run(fmt.Sprintf("%v/%d", s, windowLog), func(t *testing.T) {
				p := Params{WindowLog: windowLog, ChainLog: windowLog, HashLog: 14, SearchLog: 3, SearchLength: 4, Strategy: s}
				p.Validate(0)
				z := NewStreamCompressor()
				if err := z.InitParams(p); err != nil {
					t.Fatal(err)
				}
				compressed := streamCompress(t, z, data, 50000, 1<<20)
				got := streamDecompress(t, compressed, 4096, 4096)
				if !bytes.Equal(got, data) {
					t.Fatal("mismatch")
				}
			})
		}
	}
}

func TestStreamFlush(t *testing.T) {
	data := textData(100000, 23)
	z := NewStreamCompressor()
	if err := z.Init(3); err != nil {
		t.Fatal(err)
	}
	out := make([]byte, z.RecommendedOutSize())
	var compressed []byte
	for i := 0; i < len(data); i += 10000 {
		written, read, _, err := z.Continue(out, data[i:i+10000])
		if err != nil || read != 10000 {
			t.Fatalf("Continue: read %d, err %v", read, err)
		}
		compressed = append(compressed, out[:written]...)
		written, remaining, err := z.Flush(out)
		if err != nil || remaining != 0 {
			t.Fatalf("Flush: remaining %d, err %v", remaining, err)
		}
		compressed = append(compressed, out[:written]...)

		// Everything written so far can be decoded.
		d := NewStreamDecompressor()
		d.Init()
		dec := make([]byte, i+10000)
		w, r, _, err := d.Continue(dec, compressed)
		if err != nil || r != len(compressed) || !bytes.Equal(dec[:w], data[:i+10000]) {
			t.Fatalf("after flush %d: decoded %d bytes, read %d of %d, err %v", i, w, r, len(compressed), err)
		}
	}
	written, remaining, err := z.End(out)
	if err != nil || remaining != 0 {
		t.Fatalf("End: remaining %d, err %v", remaining, err)
	}
	compressed = append(compressed, out[:written]...)
	got := streamDecompress(t, compressed, 1<<20, 1<<20)
	if !bytes.Equal(got, data) {
		t.Fatal("mismatch")
	}
}

func TestStreamInitMissing(t *testing.T) {
	z := NewStreamCompressor()
	if _, _, _, err := z.Continue(make([]byte, 100), []byte("x")); !errors.Is(err, ErrInitMissing) {
		t.Errorf("Continue before Init: err = %v", err)
	}
	if _, _, err := z.End(make([]byte, 100)); !errors.Is(err, ErrInitMissing) {
		t.Errorf("End before Init: err = %v", err)
	}
	if err := z.Init(1); err != nil {
		t.Fatal(err)
	}
	if _, remaining, err := z.End(make([]byte, 100)); err != nil || remaining != 0 {
		t.Fatalf("End: %d, %v", remaining, err)
	}
	// The frame is finished, so a new Init is required.
	if _, _, _, err := z.Continue(make([]byte, 100), []byte("x")); !errors.Is(err, ErrInitMissing) {
		t.Errorf("Continue after End: err = %v", err)
	}

	d := NewStreamDecompressor()
	if _, _, _, err := d.Continue(make([]byte, 100), []byte("x")); !errors.Is(err, ErrInitMissing) {
		t.Errorf("decompressor Continue before Init: err = %v", err)
	}
}

func TestStreamBadInput(t *testing.T) {
	d := NewStreamDecompressor()
	d.Init()
	_, _, _, err := d.Continue(make([]byte, 100), []byte("not a frame at all"))
	if !errors.Is(err, ErrPrefixUnknown) {
		t.Errorf("err = %v, want ErrPrefixUnknown", err)
	}
}

func TestWriterReader(t *testing.T) {
	data := textData(500000, 24)
	var b bytes.Buffer
	w := NewWriter(&b, 6)
	for i := 0; i < len(data); i += 77777 {
		if _, err := w.Write(data[i:min(i+77777, len(data))]); err != nil {
			t.Fatal(err)
		}
		if i == 77777*3 {
			if err := w.Flush(); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("x")); !errors.Is(err, zpack.ErrClosed) {
		t.Errorf("Write after Close: err = %v", err)
	}
	compressed := b.Bytes()

	got, err := io.ReadAll(NewReader(bytes.NewReader(compressed)))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("Reader output doesn't match")
	}

	got, err = io.ReadAll(NewReader(iotest.OneByteReader(bytes.NewReader(compressed[:60000]))))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated stream: err = %v", err)
	}
	if !bytes.Equal(got, data[:len(got)]) {
		t.Error("truncated stream produced wrong data")
	}
}

func TestWriterReset(t *testing.T) {
	var b1, b2 bytes.Buffer
	w := NewWriter(&b1, 2)
	w.Write([]byte("first frame, first frame, first frame"))
	w.Close()
	w.Reset(&b2)
	w.Write([]byte("second frame"))
	w.Close()

	r := NewReader(io.MultiReader(bytes.NewReader(b1.Bytes()), bytes.NewReader(b2.Bytes())))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if want := "first frame, first frame, first framesecond frame"; string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	r.Reset(bytes.NewReader(b2.Bytes()))
	got, err = io.ReadAll(r)
	if err != nil || string(got) != "second frame" {
		t.Fatalf("after Reset: %q, %v", got, err)
	}
}
