package zframe

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestBitstream(t *testing.T) {
	r := rand.New(rand.NewSource(30))
	type field struct {
		v    uint32
		bits uint8
	}
	var fields []field
	for i := 0; i < 5000; i++ {
		n := uint8(r.Intn(33))
		fields = append(fields, field{r.Uint32() & (1<<n - 1), n})
	}

	var w bitWriter
	w.reset(make([]byte, 0, 5000*4+8))
	for _, f := range fields {
		w.addBits(f.v, f.bits)
	}
	if err := w.close(); err != nil {
		t.Fatal(err)
	}

	var br bitReader
	if err := br.init(w.out); err != nil {
		t.Fatal(err)
	}
	for i := len(fields) - 1; i >= 0; i-- {
		br.fill()
		if got := br.readBits(fields[i].bits); got != fields[i].v {
			t.Fatalf("field %d: got %#x, want %#x (%d bits)", i, got, fields[i].v, fields[i].bits)
		}
	}
	if !br.finished() || br.overflow() {
		t.Fatal("stream not exactly consumed")
	}
	br.readBits(1)
	if !br.overflow() {
		t.Fatal("reading past the start didn't overflow")
	}
}

func TestBitWriterBounded(t *testing.T) {
	buf := make([]byte, 4, 8)
	var w bitWriter
	w.reset(buf[:0])
	for i := 0; i < 100; i++ {
		w.addBits(0xFFFF, 16)
	}
	if err := w.close(); err == nil {
		t.Fatal("no error writing 200 bytes into 4")
	}
	if len(w.out) > cap(buf[:0]) {
		t.Fatal("wrote past capacity")
	}
}

func TestBitReaderInvalid(t *testing.T) {
	var br bitReader
	if err := br.init(nil); err == nil {
		t.Error("empty stream accepted")
	}
	if err := br.init([]byte{5, 0}); err == nil {
		t.Error("stream without end marker accepted")
	}
}

// encodeCodes writes codes the way the block encoder writes one stream
// and returns the stream and the encoder.
func encodeCodes(t *testing.T, codes []uint8, maxLog uint8) (*fseEncoder, []byte, []byte) {
	t.Helper()
	var s fseEncoder
	s.histogram(codes)
	tableLog := s.optimalTableLog(len(codes), maxLog)
	if err := s.normalizeCount(len(codes), tableLog); err != nil {
		t.Fatal(err)
	}
	if err := s.buildCTable(); err != nil {
		t.Fatal(err)
	}
	desc := s.writeCount(nil)

	var st cState
	st.init(&s)
	var w bitWriter
	w.reset(make([]byte, 0, len(codes)*2+16))
	for i := len(codes) - 1; i >= 0; i-- {
		st.encode(&w, codes[i])
	}
	st.flush(&w)
	if err := w.close(); err != nil {
		t.Fatal(err)
	}
	return &s, desc, w.out
}

func TestFSERoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(31))
	for _, tc := range []struct {
		name      string
		n         int
		maxSymbol uint8
		maxLog    uint8
		skew      float64
	}{
		{"ll", 3000, maxLL, llFSELog, 1.2},
		{"ml", 20000, maxML, mlFSELog, 1.5},
		{"off", 500, maxOff, offFSELog, 1.1},
		{"flat", 4000, maxOff, offFSELog, 0},
		{"sparse", 1000, maxML, mlFSELog, 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			codes := make([]uint8, tc.n)
			var z *rand.Zipf
			if tc.skew > 1 {
				z = rand.NewZipf(r, tc.skew, 1, uint64(tc.maxSymbol))
			}
			for i := range codes {
				if z != nil {
					codes[i] = uint8(z.Uint64())
				} else {
					codes[i] = uint8(r.Intn(int(tc.maxSymbol) + 1))
				}
			}
			if tc.name == "sparse" {
				for i := range codes {
					codes[i] = []uint8{0, 40, 126}[codes[i]%3]
				}
			}

			enc, desc, stream := encodeCodes(t, codes, tc.maxLog)

			var dec fseDecoder
			n, err := dec.readNCount(desc, tc.maxSymbol, tc.maxLog)
			if err != nil {
				t.Fatal(err)
			}
			if n != len(desc) {
				t.Fatalf("description read %d of %d bytes", n, len(desc))
			}
			if dec.actualTableLog != enc.actualTableLog {
				t.Fatalf("table log %d, want %d", dec.actualTableLog, enc.actualTableLog)
			}
			for i := 0; i < int(enc.symbolLen); i++ {
				if dec.norm[i] != enc.norm[i] {
					t.Fatalf("norm[%d] = %d, want %d", i, dec.norm[i], enc.norm[i])
				}
			}
			if err := dec.buildDtable(); err != nil {
				t.Fatal(err)
			}

			var br bitReader
			if err := br.init(stream); err != nil {
				t.Fatal(err)
			}
			var d decoder
			d.init(&br, compModeCompressed, &dec, 0)
			for i, want := range codes {
				br.fill()
				if got := d.next(&br); got != want {
					t.Fatalf("code %d: got %d, want %d", i, got, want)
				}
			}
			if !br.finished() {
				t.Fatal("stream not exactly consumed")
			}
		})
	}
}

func TestNormalizeCount(t *testing.T) {
	var s fseEncoder
	codes := []uint8{0}
	for i := 0; i < 1000; i++ {
		codes = append(codes, 1)
	}
	codes = append(codes, 2, 3, 4, 5, 6, 7)
	s.histogram(codes)
	if s.nbSymbols != 8 || s.maxCount != 1000 || s.symbolLen != 8 {
		t.Fatalf("histogram: %d symbols, max %d, len %d", s.nbSymbols, s.maxCount, s.symbolLen)
	}
	if err := s.normalizeCount(len(codes), minTablelog); err != nil {
		t.Fatal(err)
	}
	sum := 0
	for i, v := range s.norm[:s.symbolLen] {
		if v < 1 {
			t.Errorf("norm[%d] = %d", i, v)
		}
		sum += int(v)
	}
	if sum != 1<<minTablelog {
		t.Errorf("norms add up to %d", sum)
	}
}

func TestChooseMode(t *testing.T) {
	var s fseEncoder
	for _, tc := range []struct {
		codes []uint8
		want  seqCompMode
	}{
		{bytes.Repeat([]byte{7}, 100), compModeRLE},
		{[]uint8{7, 7}, compModeRaw},
		{[]uint8{1, 2, 3}, compModeRaw},
		{append(bytes.Repeat([]byte{1}, 90), bytes.Repeat([]byte{2}, 10)...), compModeCompressed},
	} {
		s.histogram(tc.codes)
		if got := s.chooseMode(len(tc.codes), llBits); got != tc.want {
			t.Errorf("chooseMode(%v...) = %v, want %v", tc.codes[:2], got, tc.want)
		}
	}
}

func TestReadNCountInvalid(t *testing.T) {
	var dec fseDecoder
	// Table log 5+15 is too big.
	if _, err := dec.readNCount([]byte{0x0F, 0xFF}, maxLL, llFSELog); err == nil {
		t.Error("oversized table log accepted")
	}
	// Truncated description.
	if _, err := dec.readNCount([]byte{0x00}, maxLL, llFSELog); err == nil {
		t.Error("truncated description accepted")
	}
}

func TestCopyMatch(t *testing.T) {
	for offset := 1; offset <= 20; offset++ {
		for _, length := range []int{4, 7, 8, 9, 15, 16, 33, 100} {
			dst := make([]byte, 64+length)
			for i := 0; i < 64; i++ {
				dst[i] = byte(i*7 + 1)
			}
			want := append([]byte(nil), dst[:64]...)
			for i := 0; i < length; i++ {
				want = append(want, want[len(want)-offset])
			}
			copyMatch(dst, 64, offset, length)
			if !bytes.Equal(dst, want) {
				t.Fatalf("offset %d, length %d: got %v, want %v", offset, length, dst[64:], want[64:])
			}
		}
	}
}

func TestSeqStoreRepeat(t *testing.T) {
	var s seqStore
	s.init()
	s.reset()
	lit := []byte("x")
	s.store(lit, 4, 5)   // rep[0] with literals
	s.store(nil, 9, 4)   // new offset
	s.store(nil, 4, 4)   // rep[1] without literals
	s.store(lit, 4, 4)   // rep[0] with literals
	s.store(lit, 9, 400) // rep[1] with literals is not a repeat
	want := []uint8{0, 4, 0, 0, 4}
	for i, sq := range s.sequences {
		if sq.ofCode != want[i] {
			t.Errorf("sequence %d (%v): offset code %d, want %d", i, sq, sq.ofCode, want[i])
		}
	}
	if last := s.sequences[4]; last.mlCode != maxML || len(s.dumps) != 4 {
		t.Errorf("long match: code %d, %d dump bytes", last.mlCode, len(s.dumps))
	}
	v, rest, err := readDump(s.dumps, maxML)
	if err != nil || v != 400-MinMatch || len(rest) != 0 {
		t.Errorf("readDump = %d, %d left, %v", v, len(rest), err)
	}
}
