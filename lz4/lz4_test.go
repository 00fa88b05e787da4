package lz4

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/andybalholm/zpack"
	"github.com/pierrec/lz4/v4"
)

func testData(n int) []byte {
	r := rand.New(rand.NewSource(1))
	words := []string{"lz4 ", "block ", "frame ", "match ", "literal ", "offset ", "token ", "\n"}
	var b []byte
	for len(b) < n {
		if r.Intn(15) == 0 {
			b = append(b, byte(r.Intn(256)))
			continue
		}
		b = append(b, words[r.Intn(len(words))]...)
	}
	return b[:n]
}

func matchFinders() map[string]zpack.MatchFinder {
	return map[string]zpack.MatchFinder{
		"fast":   &zpack.FastMatcher{},
		"greedy": &zpack.HashChain{SearchLen: 16},
		"lazy":   &zpack.HashChain{SearchLen: 16, Parser: &zpack.LazyParser{}},
	}
}

func TestBlockEncode(t *testing.T) {
	data := testData(200000)
	for name, mf := range matchFinders() {
		t.Run(name, func(t *testing.T) {
			matches := mf.FindMatches(nil, data)
			var be BlockEncoder
			compressed := be.Encode(nil, data, matches, true)
			if len(compressed) >= len(data) {
				t.Errorf("compressed %d bytes to %d", len(data), len(compressed))
			}

			decompressed := make([]byte, len(data))
			n, err := lz4.UncompressBlock(compressed, decompressed)
			if err != nil {
				t.Fatal(err)
			}
			if n != len(data) || !bytes.Equal(decompressed, data) {
				t.Fatal("decompressed output does not match")
			}
		})
	}
}

func TestBlockShortInput(t *testing.T) {
	for _, data := range [][]byte{[]byte("abcd"), []byte("abcabcabcabcabcabc"), bytes.Repeat([]byte("xy"), 20)} {
		mf := &zpack.FastMatcher{}
		compressed := appendBlock(nil, data, mf.FindMatches(nil, data))
		decompressed := make([]byte, len(data))
		n, err := lz4.UncompressBlock(compressed, decompressed)
		if err != nil {
			t.Fatalf("%q: %v", data, err)
		}
		if !bytes.Equal(decompressed[:n], data) {
			t.Fatalf("%q: got %q", data, decompressed[:n])
		}
	}
}

func TestFrameEncode(t *testing.T) {
	data := testData(300000)
	data = append(data, bytes.Repeat([]byte{0}, 10000)...)
	for name, mf := range matchFinders() {
		t.Run(name, func(t *testing.T) {
			var b bytes.Buffer
			w := &zpack.Writer{
				Dest:        &b,
				MatchFinder: mf,
				Encoder:     &FrameEncoder{},
				BlockSize:   1 << 16,
			}
			if _, err := w.Write(data); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}

			decompressed, err := io.ReadAll(lz4.NewReader(&b))
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(decompressed, data) {
				t.Fatal("decompressed output does not match")
			}
		})
	}
}

func TestFrameIncompressible(t *testing.T) {
	data := make([]byte, 50000)
	rand.New(rand.NewSource(2)).Read(data)
	var fe FrameEncoder
	mf := &zpack.FastMatcher{}
	compressed := fe.Header(nil)
	compressed = fe.Encode(compressed, data, mf.FindMatches(nil, data), true)

	decompressed, err := io.ReadAll(lz4.NewReader(bytes.NewReader(compressed)))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Fatal("decompressed output does not match")
	}
}

func BenchmarkFrameEncode(b *testing.B) {
	data := testData(1 << 20)
	var buf bytes.Buffer
	w := &zpack.Writer{
		Dest:        &buf,
		MatchFinder: &zpack.FastMatcher{},
		Encoder:     &FrameEncoder{},
		BlockSize:   1 << 16,
	}
	w.Write(data)
	w.Close()
	b.ReportMetric(float64(len(data))/float64(buf.Len()), "ratio")
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Reset(io.Discard)
		w.Write(data)
		w.Close()
	}
}
