package zpack

// HashChain is an implementation of the MatchFinder interface that
// uses hash chaining to find longer matches.
type HashChain struct {
	// HashLog is the log2 of the number of hash table entries.
	// The default is 16.
	HashLog int

	// ChainLog is the log2 of the number of chain entries.
	// The default is 16.
	ChainLog int

	// SearchLen is how many entries to examine on the hash chain.
	// The default is 1.
	SearchLen int

	// SearchLength is how many bytes are hashed (4 to 7).
	// The default is 4.
	SearchLength int

	// MaxDistance is the maximum distance (in bytes) to look back for
	// a match. The default is 65535.
	MaxDistance int

	// Parser chooses which matches to use. The default is a GreedyParser.
	Parser Parser

	window Window
	table  []uint32
	chain  []uint32

	// nextToUpdate is the first position not yet inserted into the chain.
	nextToUpdate int
}

func (q *HashChain) init() {
	if q.HashLog == 0 {
		q.HashLog = 16
	}
	if q.ChainLog == 0 {
		q.ChainLog = 16
	}
	if q.SearchLen == 0 {
		q.SearchLen = 1
	}
	if q.SearchLength == 0 {
		q.SearchLength = 4
	}
	q.SearchLength = min(max(q.SearchLength, 4), 7)
	if q.MaxDistance == 0 {
		q.MaxDistance = 65535
	}
	if q.Parser == nil {
		q.Parser = &GreedyParser{}
	}
	if len(q.table) != 1<<q.HashLog {
		q.table = make([]uint32, 1<<q.HashLog)
	}
	if len(q.chain) != 1<<q.ChainLog {
		q.chain = make([]uint32, 1<<q.ChainLog)
	}
}

func (q *HashChain) Reset() {
	for i := range q.table {
		q.table[i] = 0
	}
	for i := range q.chain {
		q.chain[i] = 0
	}
	q.window.Reset()
	q.nextToUpdate = 0
}

// FindMatches looks for matches in src, appends them to dst, and returns dst.
func (q *HashChain) FindMatches(dst []Match, src []byte) []Match {
	q.init()
	if len(src) == 0 {
		return dst
	}
	start := q.window.Load(src)
	if q.window.needsRebase() {
		// Shifting by a multiple of the chain size keeps every position
		// in the same chain slot.
		delta := q.window.rebase(start, q.MaxDistance, len(q.chain))
		rebaseTable(q.table, uint32(delta))
		rebaseTable(q.chain, uint32(delta))
		start -= delta
		q.nextToUpdate -= delta
	}
	// Positions in an earlier segment can't be hashed any more.
	q.nextToUpdate = max(q.nextToUpdate, q.window.DictLimit())

	return q.Parser.Parse(dst, q, start, q.window.End())
}

// insert adds every position from nextToUpdate up to (but not including) pos
// to the hash chains.
func (q *HashChain) insert(pos int) {
	mask := len(q.chain) - 1
	hashLog, mls := uint(q.HashLog), uint(q.SearchLength)
	for i := q.nextToUpdate; i < pos; i++ {
		h := hashLen(q.window.load64(i), hashLog, mls)
		q.chain[i&mask] = q.table[h]
		q.table[h] = uint32(i)
	}
	q.nextToUpdate = max(q.nextToUpdate, pos)
}

func (q *HashChain) Search(dst []AbsoluteMatch, pos, min, max int) []AbsoluteMatch {
	w := &q.window
	if pos+8 > w.End() || pos < w.DictLimit() {
		return dst
	}
	q.insert(pos)

	low := w.Low()
	if pos-q.MaxDistance > low {
		low = pos - q.MaxDistance
	}
	chainLow := pos - len(q.chain)
	mask := len(q.chain) - 1

	var length int
	candidate := int(q.table[hashLen(w.load64(pos), uint(q.HashLog), uint(q.SearchLength))])
	for i := 0; i < q.SearchLen && candidate >= low && candidate < pos; i++ {
		if n := w.matchLength(candidate, pos, max); n >= MinMatch {
			// Extend the match backward as far as possible.
			newStart := pos
			newMatch := candidate
			for newStart > min && newMatch > low {
				c, ok := w.At(newMatch - 1)
				if !ok || c != w.cur[newStart-1-w.dictLimit] {
					break
				}
				newStart--
				newMatch--
			}
			newEnd := pos + n
			if newEnd-newStart > length {
				dst = append(dst, AbsoluteMatch{
					Start: newStart,
					End:   newEnd,
					Match: newMatch,
				})
				length = newEnd - newStart
			}
		}

		if candidate <= chainLow {
			break
		}
		next := int(q.chain[candidate&mask])
		if next >= candidate {
			break
		}
		candidate = next
	}

	return dst
}

// MatchLength returns how long a match at distance bytes before pos would
// be, without going past max. It returns 0 if that distance is out of
// range.
func (q *HashChain) MatchLength(pos, distance, max int) int {
	w := &q.window
	cand := pos - distance
	if distance <= 0 || distance > q.MaxDistance || cand < w.Low() ||
		pos < w.DictLimit() || pos >= max || max > w.End() {
		return 0
	}
	return w.matchLength(cand, pos, max)
}
