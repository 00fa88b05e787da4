package zframe

import (
	"fmt"
	"math/bits"
)

// fseDecoder holds the decoding table for one stream of sequence codes.
type fseDecoder struct {
	dt             [maxTablesize]decSymbol // Decompression table.
	symbolLen      uint16                  // Length of active part of the symbol table.
	actualTableLog uint8                   // Selected tablelog.

	// used for table creation to avoid allocations.
	stateTable [maxSymbols]uint16
	norm       [maxSymbols]int16
}

// decSymbol contains information about a state entry:
// the output symbol, the number of bits to read for the low part of the
// next state, and the base of the next state.
type decSymbol struct {
	newState uint16
	symbol   uint8
	nbBits   uint8
}

// readNCount reads the normalized counts written by fseEncoder.writeCount.
// It returns the number of bytes used.
func (s *fseDecoder) readNCount(b []byte, maxSymbol uint8, maxLog uint8) (int, error) {
	var r fwdBitReader
	r.in = b
	tableLog := uint8(r.read(4)) + minTablelog
	if tableLog > maxLog {
		return 0, fmt.Errorf("%w: table log %d too large (max %d)", ErrCorruptionDetected, tableLog, maxLog)
	}
	s.actualTableLog = tableLog

	remaining := 1 << tableLog
	sym := 0
	for remaining > 0 {
		if sym > int(maxSymbol) {
			return 0, fmt.Errorf("%w: symbol %d exceeds %d", ErrCorruptionDetected, sym, maxSymbol)
		}
		v := int(r.read(uint8(bits.Len(uint(remaining)))))
		if v > remaining {
			return 0, fmt.Errorf("%w: count %d > remaining %d", ErrCorruptionDetected, v, remaining)
		}
		s.norm[sym] = int16(v)
		remaining -= v
		sym++
		if v != 0 {
			continue
		}
		for {
			z := int(r.read(2))
			for i := 0; i < z; i++ {
				if sym > int(maxSymbol) {
					return 0, fmt.Errorf("%w: symbol %d exceeds %d", ErrCorruptionDetected, sym, maxSymbol)
				}
				s.norm[sym] = 0
				sym++
			}
			if z < 3 {
				break
			}
		}
		if r.overrun {
			break
		}
	}
	if r.overrun {
		return 0, fmt.Errorf("%w: table description truncated", ErrSrcSizeWrong)
	}
	s.symbolLen = uint16(sym)
	return (r.pos + 7) / 8, nil
}

// fwdBitReader reads bits least significant first, from the front.
type fwdBitReader struct {
	in      []byte
	pos     int // in bits
	overrun bool
}

func (r *fwdBitReader) read(n uint8) uint32 {
	var v uint32
	for i := uint8(0); i < n; i++ {
		idx := r.pos >> 3
		if idx >= len(r.in) {
			r.overrun = true
			return 0
		}
		v |= uint32(r.in[idx]>>(r.pos&7)&1) << i
		r.pos++
	}
	return v
}

// buildDtable will build the decoding table.
func (s *fseDecoder) buildDtable() error {
	tableSize := uint32(1 << s.actualTableLog)
	symbolNext := s.stateTable[:s.symbolLen]

	for i, v := range s.norm[:s.symbolLen] {
		symbolNext[i] = uint16(v)
	}

	// Spread symbols
	{
		tableMask := tableSize - 1
		step := tableStep(tableSize)
		position := uint32(0)
		for ss, v := range s.norm[:s.symbolLen] {
			for i := 0; i < int(v); i++ {
				s.dt[position].symbol = uint8(ss)
				position = (position + step) & tableMask
			}
		}
		if position != 0 {
			// position must reach all cells once, otherwise normalizedCounter is incorrect
			return fmt.Errorf("%w: position != 0", ErrCorruptionDetected)
		}
	}

	// Build Decoding table
	{
		tableSize := uint16(tableSize)
		for u := range s.dt[:tableSize] {
			symbol := s.dt[u].symbol
			nextState := symbolNext[symbol]
			symbolNext[symbol] = nextState + 1
			nBits := s.actualTableLog - uint8(highBit(uint32(nextState)))
			newState := (nextState << nBits) - tableSize
			if newState >= tableSize {
				return fmt.Errorf("%w: newState (%d) outside table size (%d)", ErrCorruptionDetected, newState, tableSize)
			}
			s.dt[u].nbBits = nBits
			s.dt[u].newState = newState
		}
	}
	return nil
}

// setRLE makes s decode symbol for every state.
func (s *fseDecoder) setRLE(symbol uint8) {
	s.actualTableLog = 0
	s.symbolLen = uint16(symbol) + 1
	s.dt[0] = decSymbol{symbol: symbol}
}

// decoder reads one stream of sequence codes from a bitReader.
type decoder struct {
	mode    seqCompMode
	rawBits uint8
	state   decSymbol
	dt      []decSymbol
}

// init reads the first state.
func (d *decoder) init(br *bitReader, mode seqCompMode, dec *fseDecoder, rawBits uint8) {
	d.mode = mode
	d.rawBits = rawBits
	switch mode {
	case compModeCompressed:
		d.dt = dec.dt[:1<<dec.actualTableLog]
		d.state = d.dt[br.readBits(dec.actualTableLog)]
	case compModeRLE:
		d.state = dec.dt[0]
	}
}

// next returns the current symbol and moves to the next state.
func (d *decoder) next(br *bitReader) uint8 {
	switch d.mode {
	case compModeRaw:
		return uint8(br.readBits(d.rawBits))
	case compModeRLE:
		return d.state.symbol
	}
	sym := d.state.symbol
	d.state = d.dt[int(d.state.newState)+int(br.readBits(d.state.nbBits))]
	return sym
}
