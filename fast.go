package zpack

// FastMatcher is an implementation of the MatchFinder interface that uses a
// single hash table with one entry per bucket. It checks the most recent
// repeat distance before the table entry, and skips ahead faster and faster
// through data that doesn't compress.
type FastMatcher struct {
	// HashLog is the log2 of the number of hash table entries.
	// The default is 14.
	HashLog int

	// SearchLength is how many bytes are hashed (4 to 7).
	// The default is 4.
	SearchLength int

	// MaxDistance is the maximum distance (in bytes) to look back for
	// a match. The default is 65535.
	MaxDistance int

	window Window
	table  []uint32
}

// searchStrength controls how quickly the match finders skip ahead when they
// aren't finding matches.
const searchStrength = 8

// repStartValue is the repeat distance assumed at the start of a block.
const repStartValue = 4

func (q *FastMatcher) init() {
	if q.HashLog == 0 {
		q.HashLog = 14
	}
	if q.SearchLength == 0 {
		q.SearchLength = 4
	}
	q.SearchLength = min(max(q.SearchLength, 4), 7)
	if q.MaxDistance == 0 {
		q.MaxDistance = 65535
	}
	if len(q.table) != 1<<q.HashLog {
		q.table = make([]uint32, 1<<q.HashLog)
	}
}

func (q *FastMatcher) Reset() {
	for i := range q.table {
		q.table[i] = 0
	}
	q.window.Reset()
}

func (q *FastMatcher) hash(pos int) uint32 {
	return hashLen(q.window.load64(pos), uint(q.HashLog), uint(q.SearchLength))
}

// FindMatches looks for matches in src, appends them to dst, and returns dst.
func (q *FastMatcher) FindMatches(dst []Match, src []byte) []Match {
	q.init()
	if len(src) == 0 {
		return dst
	}
	start := q.window.Load(src)
	if q.window.needsRebase() {
		delta := q.window.rebase(start, q.MaxDistance, 1)
		rebaseTable(q.table, uint32(delta))
		start -= delta
	}
	end := q.window.End()
	ilimit := end - 8

	offset1, offset2 := repStartValue, repStartValue
	anchor := start
	ip := start
	if ip == q.window.Low() {
		ip++
	}

	for ip < ilimit {
		h := q.hash(ip)
		cand := int(q.table[h])
		q.table[h] = uint32(ip)

		lowest := max(q.window.Low(), ip-q.MaxDistance)
		var length int
		if ip-offset2 >= lowest {
			if n := q.window.matchLength(ip-offset2, ip, end); n >= MinMatch {
				cand = ip - offset2
				length = n
			}
		}
		if length == 0 && cand >= lowest && cand < ip {
			if n := q.window.matchLength(cand, ip, end); n >= MinMatch {
				length = n
			}
		}
		if length == 0 {
			ip += (ip-anchor)>>searchStrength + 1
			offset2 = offset1
			continue
		}

		// Catch up.
		for ip > anchor && cand > lowest {
			c, ok := q.window.At(cand - 1)
			if !ok || c != q.window.cur[ip-1-q.window.dictLimit] {
				break
			}
			ip--
			cand--
			length++
		}

		dist := ip - cand
		dst = append(dst, Match{
			Unmatched: ip - anchor,
			Length:    length,
			Distance:  dist,
		})
		offset2 = offset1
		offset1 = dist

		current := ip
		ip += length
		anchor = ip
		if ip < ilimit {
			q.table[q.hash(current+2)] = uint32(current + 2)
			q.table[q.hash(ip-2)] = uint32(ip - 2)
		}
	}

	if anchor < end {
		dst = append(dst, Match{Unmatched: end - anchor})
	}
	return dst
}
