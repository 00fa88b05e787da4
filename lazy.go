package zpack

const (
	// lazyOptimalML is the length beyond which a match is cut short when a
	// better one overlaps its end.
	lazyOptimalML = 126 + MinMatch

	// lazyMaxGap is the longest a match may be before an overlapping
	// successor and still be shortened to lazyOptimalML instead of being
	// cut at the successor's start.
	lazyMaxGap = 127
)

// A LazyParser looks for a longer match that overlaps the end of each match
// it finds, keeping up to three candidate matches at once and trimming them
// so that they don't overlap.
type LazyParser struct {
	matchCache []AbsoluteMatch
}

// wider searches at pos for a match longer than longest, extending no further
// back than low.
func (p *LazyParser) wider(src Searcher, pos, low, end, longest int) (AbsoluteMatch, bool) {
	p.matchCache = src.Search(p.matchCache[:0], pos, low, end)
	m := longestMatch(p.matchCache)
	if m.length() > longest {
		return m, true
	}
	return AbsoluteMatch{}, false
}

// lazyState names what the LazyParser is looking for next.
type lazyState uint8

const (
	// lazyFirst is looking for any match at ip.
	lazyFirst lazyState = iota
	// lazySecond is looking for a longer match overlapping the end of cur.
	lazySecond
	// lazyThird is looking for a longer match overlapping the end of next.
	lazyThird
)

func (p *LazyParser) Parse(dst []Match, src Searcher, start, end int) []Match {
	e := matchEmitter{dst: dst, anchor: start}
	mflimit := end - 8

	// cur, next, and third are pending matches in ascending order of
	// position. saved is a fallback for cur, in case skipping ahead to a
	// later match turns out to lose too much.
	var cur, next, third, saved AbsoluteMatch
	var ok bool
	state := lazyFirst
	ip := start

	for state != lazyFirst || ip < mflimit {
		switch state {
		case lazyFirst:
			cur, ok = p.wider(src, ip, e.anchor, end, MinMatch-1)
			if !ok {
				ip++
				continue
			}
			saved = cur
			state = lazySecond

		case lazySecond:
			ok = false
			if cur.End < mflimit {
				next, ok = p.wider(src, cur.End-2, cur.Start, end, cur.length())
			}
			if !ok {
				e.emit(cur)
				ip = cur.End
				state = lazyFirst
				continue
			}
			if saved.Start < cur.Start && next.Start < cur.Start+saved.length() {
				cur = saved
			}
			if next.Start-cur.Start < 3 {
				// The first match is too small to keep.
				cur = next
				saved = cur
				continue
			}
			state = lazyThird

		case lazyThird:
			if next.Start-cur.Start < lazyOptimalML {
				newML := min(cur.length(), lazyOptimalML)
				if cur.Start+newML > next.End-MinMatch {
					newML = next.Start - cur.Start + next.length() - MinMatch
				}
				if correction := newML - (next.Start - cur.Start); correction > 0 {
					next.shift(correction)
				}
			}

			ok = false
			if next.End < mflimit {
				third, ok = p.wider(src, next.End-3, next.Start, end, next.length())
			}
			if !ok {
				// Two sequences to encode.
				if next.Start < cur.End {
					cur.End = next.Start
				}
				e.emit(cur)
				e.emit(next)
				ip = next.End
				state = lazyFirst
				continue
			}

			if third.Start < cur.End+3 {
				if third.Start >= cur.End {
					// cur can be written now; next is dropped and third
					// becomes the current match.
					if next.Start < cur.End {
						next.shift(cur.End - next.Start)
						if next.length() < MinMatch {
							next = third
						}
					}
					e.emit(cur)
					cur = third
					saved = next
					state = lazySecond
					continue
				}
				next = third
				continue
			}

			// Three ascending matches: write at least the first one.
			if next.Start < cur.End {
				if next.Start-cur.Start < lazyMaxGap {
					ml := min(cur.length(), lazyOptimalML)
					if cur.Start+ml > next.End-MinMatch {
						ml = next.Start - cur.Start + next.length() - MinMatch
					}
					cur.End = cur.Start + ml
					if correction := ml - (next.Start - cur.Start); correction > 0 {
						next.shift(correction)
					}
				} else {
					cur.End = next.Start
				}
			}
			e.emit(cur)
			cur = next
			next = third
		}
	}

	return e.finish(end)
}
