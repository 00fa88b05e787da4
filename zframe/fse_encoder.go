package zframe

import (
	"errors"
	"fmt"
	"math/bits"
)

// maxSymbols is the size of the largest sequence alphabet (match lengths).
const maxSymbols = maxML + 1

// fseEncoder builds FSE tables for one stream of sequence codes and
// describes them in the block.
type fseEncoder struct {
	symbolLen      uint16 // one more than the largest symbol present
	actualTableLog uint8
	maxCount       int // count of the most frequent symbol
	nbSymbols      int // number of distinct symbols

	count [maxSymbols]uint32
	norm  [maxSymbols]int16

	stateTable [maxTablesize]uint16
	symbolTT   [maxSymbols]symbolTransform
}

// symbolTransform contains the state transform for a symbol.
type symbolTransform struct {
	deltaFindState int16
	deltaNbBits    uint32
}

// tableStep returns the next table index.
func tableStep(tableSize uint32) uint32 {
	return (tableSize >> 1) + (tableSize >> 3) + 3
}

// histogram counts the symbols in codes, which must all be below
// maxSymbols.
func (s *fseEncoder) histogram(codes []uint8) {
	s.count = [maxSymbols]uint32{}
	for _, c := range codes {
		s.count[c]++
	}
	s.maxCount = 0
	s.nbSymbols = 0
	s.symbolLen = 0
	for i, v := range s.count[:] {
		if v == 0 {
			continue
		}
		s.nbSymbols++
		s.symbolLen = uint16(i + 1)
		if int(v) > s.maxCount {
			s.maxCount = int(v)
		}
	}
}

// chooseMode decides how a stream of n codes that fit in symbolBits bits
// should be encoded. histogram must have been called first.
func (s *fseEncoder) chooseMode(n int, symbolBits uint) seqCompMode {
	switch {
	case s.maxCount == n && n > 2:
		return compModeRLE
	case n < 64 || s.maxCount < n>>(symbolBits-1):
		return compModeRaw
	}
	return compModeCompressed
}

// optimalTableLog returns a table log for n symbols, at most maxLog.
func (s *fseEncoder) optimalTableLog(n int, maxLog uint8) uint8 {
	tableLog := int(maxLog)
	maxBitsSrc := int(highBit(uint32(n-1))) - 2
	minBitsSrc := int(highBit(uint32(n))) + 1
	minBitsSymbols := int(highBit(uint32(s.symbolLen-1))) + 2
	minBits := min(minBitsSrc, minBitsSymbols)
	if maxBitsSrc < tableLog {
		tableLog = maxBitsSrc
	}
	if minBits > tableLog {
		tableLog = minBits
	}
	// Every symbol present needs at least one state.
	if need := bits.Len(uint(s.nbSymbols - 1)); need > tableLog {
		tableLog = need
	}
	return uint8(min(max(tableLog, minTablelog), int(maxLog)))
}

// normalizeCount scales the counts so they add up to 1<<tableLog. Every
// symbol present gets at least 1.
func (s *fseEncoder) normalizeCount(total int, tableLog uint8) error {
	if s.nbSymbols > 1<<tableLog {
		return fmt.Errorf("%d symbols don't fit in table log %d", s.nbSymbols, tableLog)
	}
	s.actualTableLog = tableLog
	tableSize := 1 << tableLog
	sum := 0
	largest := -1
	for i, c := range s.count[:s.symbolLen] {
		s.norm[i] = 0
		if c == 0 {
			continue
		}
		v := (int(c)<<tableLog + total/2) / total
		if v == 0 {
			v = 1
		}
		s.norm[i] = int16(v)
		sum += v
		if largest < 0 || s.norm[i] > s.norm[largest] {
			largest = i
		}
	}

	switch diff := tableSize - sum; {
	case diff > 0:
		s.norm[largest] += int16(diff)
	case diff < 0:
		for ; diff < 0; diff++ {
			// Take from the largest symbol each time.
			big := -1
			for i, v := range s.norm[:s.symbolLen] {
				if v > 1 && (big < 0 || v > s.norm[big]) {
					big = i
				}
			}
			if big < 0 {
				return errors.New("normalization failed")
			}
			s.norm[big]--
		}
	}
	return nil
}

// writeCount appends the description of the normalized counts to dst.
//
// The description is a little-endian bit stream: 4 bits of tableLog minus
// minTablelog, then for each symbol in order its normalized count, using as
// many bits as it takes to write the count still unassigned. A zero count
// is followed by the number of further zero counts, in 2-bit groups where 3
// means more follow.
func (s *fseEncoder) writeCount(dst []byte) []byte {
	var b bitWriter
	b.reset(make([]byte, 0, 2+int(s.symbolLen)*2))
	b.addBits(uint32(s.actualTableLog-minTablelog), 4)

	remaining := 1 << s.actualTableLog
	for sym := 0; remaining > 0; {
		v := int(s.norm[sym])
		b.addBits(uint32(v), uint8(bits.Len(uint(remaining))))
		remaining -= v
		sym++
		if v != 0 {
			continue
		}
		zeros := 0
		for s.norm[sym+zeros] == 0 {
			zeros++
		}
		sym += zeros
		for zeros >= 3 {
			b.addBits(3, 2)
			zeros -= 3
		}
		b.addBits(uint32(zeros), 2)
	}
	b.flushAlign()
	return append(dst, b.out...)
}

// buildCTable builds the encoding table from the normalized counts.
func (s *fseEncoder) buildCTable() error {
	tableSize := uint32(1 << s.actualTableLog)
	var tableSymbol [maxTablesize]uint8
	var cumul [maxSymbols + 1]uint32

	for i, v := range s.norm[:s.symbolLen] {
		cumul[i+1] = cumul[i] + uint32(v)
	}
	if cumul[s.symbolLen] != tableSize {
		return fmt.Errorf("internal error: cumul (%d) != tableSize (%d)", cumul[s.symbolLen], tableSize)
	}

	// Spread symbols
	step := tableStep(tableSize)
	tableMask := tableSize - 1
	var position uint32
	for sym, v := range s.norm[:s.symbolLen] {
		for i := int16(0); i < v; i++ {
			tableSymbol[position] = uint8(sym)
			position = (position + step) & tableMask
		}
	}
	if position != 0 {
		return errors.New("position != 0")
	}

	// Build table
	for u, sym := range tableSymbol[:tableSize] {
		s.stateTable[cumul[sym]] = uint16(tableSize + uint32(u))
		cumul[sym]++
	}

	// Build Symbol Transformation Table
	total := int16(0)
	tableLog := uint32(s.actualTableLog)
	for i, v := range s.norm[:s.symbolLen] {
		switch v {
		case 0:
		case 1:
			s.symbolTT[i].deltaNbBits = tableLog<<16 - tableSize
			s.symbolTT[i].deltaFindState = total - 1
			total++
		default:
			maxBitsOut := tableLog - highBit(uint32(v-1))
			minStatePlus := uint32(v) << maxBitsOut
			s.symbolTT[i].deltaNbBits = maxBitsOut<<16 - minStatePlus
			s.symbolTT[i].deltaFindState = total - v
			total += v
		}
	}
	if total != int16(tableSize) {
		return fmt.Errorf("total mismatch %d (got) != %d (want)", total, tableSize)
	}
	return nil
}

// cState is the state of an FSE encoder for one stream.
type cState struct {
	state      uint16
	stateTable []uint16
	symbolTT   []symbolTransform
	tableLog   uint8
}

func (c *cState) init(s *fseEncoder) {
	tableSize := uint32(1) << s.actualTableLog
	c.state = uint16(tableSize)
	c.stateTable = s.stateTable[:tableSize]
	c.symbolTT = s.symbolTT[:s.symbolLen]
	c.tableLog = s.actualTableLog
}

func (c *cState) encode(b *bitWriter, symbol uint8) {
	tt := c.symbolTT[symbol]
	nbBitsOut := (uint32(c.state) + tt.deltaNbBits) >> 16
	dstState := int32(c.state>>(nbBitsOut&15)) + int32(tt.deltaFindState)
	b.addBits(uint32(c.state), uint8(nbBitsOut))
	c.state = c.stateTable[dstState]
}

// flush writes the final state.
func (c *cState) flush(b *bitWriter) {
	b.addBits(uint32(c.state), c.tableLog)
}
