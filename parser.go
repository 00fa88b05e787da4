package zpack

// An AbsoluteMatch is like a Match, but it stores indexes into the byte
// stream instead of lengths.
type AbsoluteMatch struct {
	// Start is the index of the first byte.
	Start int

	// End is the index of the byte after the last byte
	// (so that End - Start = Length).
	End int

	// Match is the index of the previous data that matches
	// (Start - Match = Distance).
	Match int
}

func (m AbsoluteMatch) length() int { return m.End - m.Start }

// shift moves the start of m forward by n bytes.
func (m *AbsoluteMatch) shift(n int) {
	m.Start += n
	m.Match += n
}

// A Searcher is the source of matches for a Parser. It is a lower-level
// interface than MatchFinder, only looking for matches at one position at a
// time. A type that uses a Parser to implement MatchFinder can implement
// Searcher as well, and pass itself to the Parser.
type Searcher interface {
	// Search looks for matches at pos and appends them to dst.
	// In each match, Start and End must fall within the interval [min,max),
	// and Match < Start < End.
	Search(dst []AbsoluteMatch, pos, min, max int) []AbsoluteMatch
}

// A RepeatSearcher can check a match at a known distance, which lets a
// Parser try recently used distances before searching.
type RepeatSearcher interface {
	// MatchLength returns the length of the match at pos with the given
	// distance, ending no later than max. It returns 0 if there is no
	// such match.
	MatchLength(pos, distance, max int) int
}

// A Parser chooses which matches to use to compress the data.
type Parser interface {
	// Parse gets matches from src, chooses which ones to use, and appends
	// them to dst. The matches cover the range of bytes from start to end.
	Parse(dst []Match, src Searcher, start, end int) []Match
}

// matchEmitter converts AbsoluteMatches into Matches.
type matchEmitter struct {
	dst    []Match
	anchor int
}

// emit appends m. Matches that are too short or that overlap what has
// already been emitted are dropped, leaving their bytes as literals.
func (e *matchEmitter) emit(m AbsoluteMatch) {
	if m.length() < MinMatch || m.Start < e.anchor || m.Match >= m.Start {
		return
	}
	e.dst = append(e.dst, Match{
		Unmatched: m.Start - e.anchor,
		Length:    m.length(),
		Distance:  m.Start - m.Match,
	})
	e.anchor = m.End
}

func (e *matchEmitter) finish(end int) []Match {
	if e.anchor < end {
		e.dst = append(e.dst, Match{Unmatched: end - e.anchor})
	}
	return e.dst
}

// A GreedyParser implements the greedy matching strategy: It goes from start
// to end, choosing the longest match at each position. Before searching, it
// tries the two most recent match distances.
type GreedyParser struct {
	matchCache []AbsoluteMatch
}

func (p *GreedyParser) Parse(dst []Match, src Searcher, start, end int) []Match {
	rs, _ := src.(RepeatSearcher)
	e := matchEmitter{dst: dst, anchor: start}
	rep := [2]int{repStartValue, repStartValue}
	limit := end - 8
	matches := p.matchCache[:0]

	s := start
	for s < limit {
		matches = matches[:0]
		if rs != nil {
			for _, c := range [...]struct{ pos, dist int }{{s, rep[0]}, {s, rep[1]}, {s + 1, rep[0]}} {
				if n := rs.MatchLength(c.pos, c.dist, end); n >= MinMatch {
					matches = append(matches, AbsoluteMatch{Start: c.pos, End: c.pos + n, Match: c.pos - c.dist})
				}
			}
		}
		matches = src.Search(matches, s, e.anchor, end)
		m := longestMatch(matches)
		if m.length() < MinMatch {
			s += (s-e.anchor)>>searchStrength + 1
			continue
		}

		if d := m.Start - m.Match; d != rep[0] {
			rep[1], rep[0] = rep[0], d
		}
		e.emit(m)
		s = m.End

		// Take immediate repeats of the previous distance.
		for rs != nil && s < limit {
			n := rs.MatchLength(s, rep[1], end)
			if n < MinMatch {
				break
			}
			rep[0], rep[1] = rep[1], rep[0]
			e.emit(AbsoluteMatch{Start: s, End: s + n, Match: s - rep[0]})
			s += n
		}
	}

	p.matchCache = matches[:0]
	return e.finish(end)
}

// longestMatch returns the longest match in matches. Among matches of the
// same length, it picks the one that starts first.
func longestMatch(matches []AbsoluteMatch) AbsoluteMatch {
	var longest AbsoluteMatch

	for _, m := range matches {
		l := m.length()
		if l > longest.length() || (l == longest.length() && l > 0 && m.Start < longest.Start) {
			longest = m
		}
	}

	return longest
}
