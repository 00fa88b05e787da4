package zpack

import (
	"encoding/binary"
	"math/bits"
)

// rebaseLimit is the position past which match finders shift their tables
// down, so that positions always fit in a uint32.
const rebaseLimit = 1 << 30

// A Window addresses every byte a match finder has been given by its
// position in the stream.
//
// The current segment holds positions [dictLimit, End()). The dictionary
// segment is the previous, discontiguous segment; it ends at dictLimit.
// Positions below lowLimit can no longer be referenced.
type Window struct {
	cur  []byte
	dict []byte

	dictLimit int
	lowLimit  int

	// rebaseAt overrides rebaseLimit when it is non-zero.
	rebaseAt int
}

// Reset forgets all data.
func (w *Window) Reset() {
	rebaseAt := w.rebaseAt
	*w = Window{rebaseAt: rebaseAt}
}

// Load appends src to the stream and returns the position of its first
// byte. If src starts where the current segment ends in memory, the
// segment grows; otherwise the current segment becomes the dictionary and
// the old dictionary is dropped.
func (w *Window) Load(src []byte) int {
	if len(src) == 0 {
		return w.End()
	}
	start := w.End()
	if adjacent(w.cur, src) {
		w.cur = w.cur[:len(w.cur)+len(src)]
	} else {
		if len(w.cur) > 0 {
			w.dict = w.cur
			w.lowLimit = w.dictLimit
			w.dictLimit += len(w.cur)
		}
		w.cur = src
	}
	w.clipDict()
	return start
}

// adjacent reports whether b starts at the byte just past the end of a.
func adjacent(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 || cap(a)-len(a) < len(b) {
		return false
	}
	return &a[:len(a)+1][len(a)] == &b[0]
}

// clipDict handles a ring buffer that has wrapped: when the current segment
// starts at the same address as the dictionary, the front of the dictionary
// has been overwritten.
func (w *Window) clipDict() {
	if len(w.dict) == 0 || len(w.cur) == 0 || &w.dict[0] != &w.cur[0] {
		return
	}
	low := w.dictLimit - len(w.dict) + len(w.cur)
	if low > w.dictLimit {
		low = w.dictLimit
	}
	if low > w.lowLimit {
		w.lowLimit = low
	}
}

// End returns the position just past the last byte loaded.
func (w *Window) End() int {
	return w.dictLimit + len(w.cur)
}

// Low returns the lowest position that can still be referenced.
func (w *Window) Low() int {
	return w.lowLimit
}

// DictLimit returns the position of the first byte of the current segment.
func (w *Window) DictLimit() int {
	return w.dictLimit
}

// Bytes returns the bytes from pos to the end of the segment that holds
// pos. ok is false if pos cannot be retrieved.
func (w *Window) Bytes(pos int) (b []byte, ok bool) {
	switch {
	case pos >= w.dictLimit && pos < w.End():
		return w.cur[pos-w.dictLimit:], true
	case pos >= w.lowLimit && pos < w.dictLimit:
		return w.dict[pos-(w.dictLimit-len(w.dict)):], true
	}
	return nil, false
}

// At returns the byte at pos.
func (w *Window) At(pos int) (c byte, ok bool) {
	b, ok := w.Bytes(pos)
	if !ok {
		return 0, false
	}
	return b[0], true
}

// load64 reads 8 bytes at pos, which must be in the current segment with at
// least 8 bytes following it.
func (w *Window) load64(pos int) uint64 {
	return binary.LittleEndian.Uint64(w.cur[pos-w.dictLimit:])
}

// matchLength returns how many bytes at cand equal those at pos, stopping at
// end. pos must be in the current segment, cand must be retrievable, and
// cand < pos <= end <= End(). A match that starts in the dictionary may
// continue into the current segment.
func (w *Window) matchLength(cand, pos, end int) int {
	cur := w.cur[:end-w.dictLimit]
	p := pos - w.dictLimit
	if cand >= w.dictLimit {
		return commonPrefix(cur[cand-w.dictLimit:], cur[p:])
	}
	if cand < w.lowLimit {
		return 0
	}
	d := w.dict[cand-(w.dictLimit-len(w.dict)):]
	n := commonPrefix(d, cur[p:])
	if n < len(d) {
		return n
	}
	return n + commonPrefix(cur, cur[p+n:])
}

// commonPrefix returns the length of the common prefix of a and b.
func commonPrefix(a, b []byte) int {
	if len(a) > len(b) {
		a = a[:len(b)]
	}
	n := 0
	for n+8 <= len(a) {
		x := binary.LittleEndian.Uint64(a[n:]) ^ binary.LittleEndian.Uint64(b[n:])
		if x != 0 {
			return n + bits.TrailingZeros64(x)>>3
		}
		n += 8
	}
	for n < len(a) && a[n] == b[n] {
		n++
	}
	return n
}

// forget makes positions below pos unreachable, trimming the current
// segment if pos falls inside it.
func (w *Window) forget(pos int) {
	if pos <= w.lowLimit {
		return
	}
	if pos > w.dictLimit {
		if pos > w.End() {
			pos = w.End()
		}
		w.cur = w.cur[pos-w.dictLimit:]
		w.dictLimit = pos
		w.dict = nil
	}
	w.lowLimit = pos
}

// needsRebase reports whether positions have grown past the rebase limit.
func (w *Window) needsRebase() bool {
	limit := w.rebaseAt
	if limit == 0 {
		limit = rebaseLimit
	}
	return w.End() > limit
}

// rebase drops everything more than maxDistance before pos, then shifts
// all positions down by a multiple of align. It returns the shift, which
// the caller must apply to its own tables with rebaseTable.
func (w *Window) rebase(pos, maxDistance, align int) int {
	w.forget(pos - maxDistance)
	delta := w.lowLimit - w.lowLimit%align
	w.dictLimit -= delta
	w.lowLimit -= delta
	return delta
}

// rebaseTable subtracts delta from every entry in t, clamping at zero.
func rebaseTable(t []uint32, delta uint32) {
	for i, v := range t {
		if v < delta {
			t[i] = 0
		} else {
			t[i] = v - delta
		}
	}
}

const prime8bytes = 0xcf1bbcdcb7a56463

// hashLen hashes the low mls bytes of u into a hashLog-bit value.
func hashLen(u uint64, hashLog, mls uint) uint32 {
	return uint32(((u << (64 - 8*mls)) * prime8bytes) >> (64 - hashLog))
}
