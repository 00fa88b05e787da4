// Package zpack is a modular system for LZ77 compression.
//
// A compressor has two main parts:
//   - Something that looks for repeated sequences of bytes (a MatchFinder)
//   - An encoder for the compressed data format (often an entropy coder)
//
// This package holds the first part: the window that remembers what a stream
// has already produced, the hash-table and hash-chain match finders that
// search it, and the parsers that decide which matches to keep. Matches are
// handed to an Encoder as a slice of Match values, so any match finder can
// feed any format. The zframe subpackage implements the block/frame format
// of this module; the lz4 and snappy subpackages write those formats from the
// same intermediate representation.
package zpack

// MinMatch is the shortest match the match finders report.
const MinMatch = 4

// A Match is the basic unit of LZ77 compression.
type Match struct {
	Unmatched int // the number of unmatched bytes since the previous match
	Length    int // the number of bytes in the matched string; it may be 0 at the end of the input
	Distance  int // how far back in the stream to copy from
}

// A MatchFinder performs the LZ77 stage of compression, looking for matches.
type MatchFinder interface {
	// FindMatches looks for matches in src, appends them to dst, and returns dst.
	// src is treated as the continuation of the blocks passed in earlier
	// calls. The most recent previous block must not be modified until
	// FindMatches has been called again.
	FindMatches(dst []Match, src []byte) []Match

	// Reset clears any internal state, preparing the MatchFinder to be used with
	// a new stream.
	Reset()
}

// An Encoder encodes the data in its final format.
type Encoder interface {
	// Header appends the appropriate stream header to dst.
	Header(dst []byte) []byte

	// Encode appends the encoded format of src to dst, using the match
	// information from matches.
	Encode(dst []byte, src []byte, matches []Match, lastBlock bool) []byte

	// Reset clears any internal state, preparing the Encoder to be used with
	// a new stream.
	Reset()
}

// AutoReset wraps a MatchFinder that can return references to data in
// previous blocks, and calls Reset before each block. It is useful for
// formats whose blocks must be decodable on their own.
type AutoReset struct {
	MatchFinder
}

func (a AutoReset) FindMatches(dst []Match, src []byte) []Match {
	a.Reset()
	return a.MatchFinder.FindMatches(dst, src)
}
