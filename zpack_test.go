package zpack

import (
	"bytes"
	"math/rand"
	"testing"
)

func testData(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	words := []string{"the ", "quick ", "brown ", "fox ", "jumps ", "over ", "lazy ", "dog ", "\n", "compression ", "window ", "block "}
	var b []byte
	for len(b) < n {
		if r.Intn(10) == 0 {
			b = append(b, byte(r.Intn(256)))
			continue
		}
		b = append(b, words[r.Intn(len(words))]...)
	}
	return b[:n]
}

// replay rebuilds the data described by matches, appending to history.
func replay(t *testing.T, history []byte, src []byte, matches []Match) []byte {
	t.Helper()
	pos := 0
	for i, m := range matches {
		history = append(history, src[pos:pos+m.Unmatched]...)
		pos += m.Unmatched
		if m.Length == 0 {
			continue
		}
		if m.Length < MinMatch {
			t.Fatalf("match %d: length %d too short", i, m.Length)
		}
		if m.Distance <= 0 || m.Distance > len(history) {
			t.Fatalf("match %d: distance %d out of range (history %d)", i, m.Distance, len(history))
		}
		for j := 0; j < m.Length; j++ {
			history = append(history, history[len(history)-m.Distance])
		}
		pos += m.Length
	}
	if pos != len(src) {
		t.Fatalf("matches cover %d bytes; block has %d", pos, len(src))
	}
	return history
}

func matchFinders() map[string]func() MatchFinder {
	return map[string]func() MatchFinder{
		"fast":   func() MatchFinder { return &FastMatcher{} },
		"fast6":  func() MatchFinder { return &FastMatcher{HashLog: 12, SearchLength: 6} },
		"greedy": func() MatchFinder { return &HashChain{SearchLen: 16} },
		"lazy":   func() MatchFinder { return &HashChain{SearchLen: 32, Parser: &LazyParser{}} },
		"lazy5":  func() MatchFinder { return &HashChain{SearchLen: 8, SearchLength: 5, HashLog: 12, ChainLog: 10, Parser: &LazyParser{}} },
	}
}

func TestMatchFindersReplay(t *testing.T) {
	data := testData(300000, 1)
	for name, newMF := range matchFinders() {
		t.Run(name, func(t *testing.T) {
			mf := newMF()
			var out []byte
			var matches []Match
			// Separate allocations, so every block starts a new segment.
			for i := 0; i < len(data); i += 40000 {
				block := append([]byte(nil), data[i:min(i+40000, len(data))]...)
				matches = mf.FindMatches(matches[:0], block)
				out = replay(t, out, block, matches)
			}
			if !bytes.Equal(out, data) {
				t.Fatal("replayed data doesn't match")
			}
		})
	}
}

func TestMatchFindersContiguous(t *testing.T) {
	data := testData(100000, 2)
	for name, newMF := range matchFinders() {
		t.Run(name, func(t *testing.T) {
			mf := newMF()
			var out []byte
			var matches []Match
			for i := 0; i < len(data); i += 7000 {
				block := data[i:min(i+7000, len(data))]
				matches = mf.FindMatches(matches[:0], block)
				out = replay(t, out, block, matches)
			}
			if !bytes.Equal(out, data) {
				t.Fatal("replayed data doesn't match")
			}
		})
	}
}

func TestFastMatcherRepeat(t *testing.T) {
	var data []byte
	for len(data) < 300 {
		data = append(data, "abcabcabcX"...)
	}
	mf := &FastMatcher{SearchLength: 4}
	matches := mf.FindMatches(nil, data)
	found := false
	for _, m := range matches {
		if m.Distance == 3 && m.Length >= 4 {
			found = true
		}
	}
	if !found {
		t.Errorf("no match with distance 3 in %v", matches)
	}
	out := replay(t, nil, data, matches)
	if !bytes.Equal(out, data) {
		t.Fatal("replayed data doesn't match")
	}
}

func TestEmptyBlock(t *testing.T) {
	for name, newMF := range matchFinders() {
		if m := newMF().FindMatches(nil, nil); len(m) != 0 {
			t.Errorf("%s: got %v for empty input", name, m)
		}
	}
}

func TestWindowRing(t *testing.T) {
	// A ring buffer reused from the start: the second load overwrites the
	// front of the first.
	ring := make([]byte, 64)
	var w Window
	copy(ring, bytes.Repeat([]byte("x"), 64))
	w.Load(ring[:64])
	copy(ring, "hello, world")
	pos := w.Load(ring[:12])
	if pos != 64 {
		t.Fatalf("Load returned %d; want 64", pos)
	}
	if w.Low() < 12 {
		t.Errorf("Low() = %d; overwritten bytes are still reachable", w.Low())
	}
	if _, ok := w.At(11); ok {
		t.Error("position 11 should be unreachable")
	}
	if c, ok := w.At(40); !ok || c != 'x' {
		t.Errorf("At(40) = %q, %v", c, ok)
	}
}

func TestWindowAdjacent(t *testing.T) {
	buf := make([]byte, 100)
	var w Window
	w.Load(buf[:40])
	pos := w.Load(buf[40:70])
	if pos != 40 || w.DictLimit() != 0 || w.End() != 70 {
		t.Errorf("after contiguous load: pos %d, dictLimit %d, end %d", pos, w.DictLimit(), w.End())
	}
	other := make([]byte, 10)
	pos = w.Load(other)
	if pos != 70 || w.DictLimit() != 70 || w.Low() != 0 {
		t.Errorf("after separate load: pos %d, dictLimit %d, low %d", pos, w.DictLimit(), w.Low())
	}
}

func TestRebase(t *testing.T) {
	data := testData(200000, 3)
	for _, mf := range []interface {
		MatchFinder
		setRebase(int)
	}{&FastMatcher{}, &HashChain{SearchLen: 8, ChainLog: 12}, &HashChain{SearchLen: 8, ChainLog: 12, Parser: &LazyParser{}}} {
		mf.setRebase(70000)
		var out []byte
		var matches []Match
		for i := 0; i < len(data); i += 20000 {
			block := data[i:min(i+20000, len(data))]
			matches = mf.FindMatches(matches[:0], block)
			out = replay(t, out, block, matches)
		}
		if !bytes.Equal(out, data) {
			t.Fatalf("%T: replayed data doesn't match", mf)
		}
	}
}

func (q *FastMatcher) setRebase(n int) { q.window.rebaseAt = n }
func (q *HashChain) setRebase(n int)   { q.window.rebaseAt = n }

func TestTextEncoder(t *testing.T) {
	var e TextEncoder
	src := []byte("ab<cab<cab<c!xyzzy")
	matches := []Match{
		{Unmatched: 4, Length: 4, Distance: 4},
		{Length: 4, Distance: 4},
		{Unmatched: 2, Length: 3, Distance: 1},
		{Unmatched: 1},
	}
	got := e.Encode(nil, src, matches, false)
	if want := "ab<<c<4,4><4,=>!x<3,1>y|"; string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
	e.Reset()
	got = e.Encode(nil, []byte("aaaa"), []Match{{Unmatched: 1, Length: 3, Distance: 1}}, true)
	if want := "a<3,1>"; string(got) != want {
		t.Errorf("after Reset: got %q, want %q", got, want)
	}
}

func TestWriterText(t *testing.T) {
	data := testData(50000, 4)
	var buf bytes.Buffer
	w := &Writer{
		Dest:        &buf,
		MatchFinder: &HashChain{SearchLen: 4},
		Encoder:     &TextEncoder{},
		BlockSize:   4096,
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("no output")
	}
	if _, err := w.Write([]byte("x")); err != ErrClosed {
		t.Errorf("Write after Close returned %v", err)
	}
}

func TestLongestMatchTie(t *testing.T) {
	m := longestMatch([]AbsoluteMatch{
		{Start: 12, End: 20, Match: 2},
		{Start: 10, End: 18, Match: 1},
		{Start: 11, End: 19, Match: 0},
		{Start: 14, End: 21, Match: 3},
	})
	if m.Start != 10 || m.Match != 1 {
		t.Errorf("got %+v, want the match starting at 10", m)
	}
	if m := longestMatch(nil); m.length() != 0 {
		t.Errorf("no matches: got %+v", m)
	}
}
