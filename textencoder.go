package zpack

import "strconv"

// A TextEncoder shows the output of a MatchFinder as text. Literal bytes are
// copied through, with '<' doubled. A match is written as <Length,Distance>,
// or <Length,=> when it reuses the previous match's distance. Blocks other
// than the last are followed by a '|'.
type TextEncoder struct {
	lastDistance int
}

func (t *TextEncoder) Header(dst []byte) []byte {
	return dst
}

func (t *TextEncoder) Reset() {
	t.lastDistance = 0
}

func (t *TextEncoder) Encode(dst []byte, src []byte, matches []Match, lastBlock bool) []byte {
	pos := 0
	for _, m := range matches {
		dst = appendEscaped(dst, src[pos:pos+m.Unmatched])
		pos += m.Unmatched
		if m.Length == 0 {
			continue
		}
		dst = append(dst, '<')
		dst = strconv.AppendInt(dst, int64(m.Length), 10)
		if m.Distance == t.lastDistance {
			dst = append(dst, ",=>"...)
		} else {
			dst = append(dst, ',')
			dst = strconv.AppendInt(dst, int64(m.Distance), 10)
			dst = append(dst, '>')
			t.lastDistance = m.Distance
		}
		pos += m.Length
	}
	dst = appendEscaped(dst, src[pos:])
	if !lastBlock {
		dst = append(dst, '|')
	}
	return dst
}

func appendEscaped(dst, lits []byte) []byte {
	for _, c := range lits {
		if c == '<' {
			dst = append(dst, '<')
		}
		dst = append(dst, c)
	}
	return dst
}
