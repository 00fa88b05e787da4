package zframe

import (
	"fmt"
	"math/bits"

	"github.com/andybalholm/zpack"
)

// Strategy selects the match finder and parser used for compression.
type Strategy int

const (
	// StrategyFast uses a single hash table with one entry per bucket.
	StrategyFast Strategy = iota
	// StrategyGreedy uses hash chains and takes the longest match at each
	// position.
	StrategyGreedy
	// StrategyLazy uses hash chains and looks ahead for longer overlapping
	// matches.
	StrategyLazy
)

func (s Strategy) String() string {
	switch s {
	case StrategyFast:
		return "fast"
	case StrategyGreedy:
		return "greedy"
	case StrategyLazy:
		return "lazy"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Params are the tuning parameters for compression.
type Params struct {
	// WindowLog is the log2 of how far back matches may reach.
	WindowLog int
	// ChainLog is the log2 of the number of chain table entries.
	ChainLog int
	// HashLog is the log2 of the number of hash table entries.
	HashLog int
	// SearchLog is the log2 of the number of chain entries examined.
	SearchLog int
	// SearchLength is the number of bytes hashed (4 to 7).
	SearchLength int
	Strategy     Strategy
}

const (
	chainLogMin     = 4
	hashLogMin      = 4
	hashLogMax      = 24
	searchLogMin    = 1
	searchLengthMin = 4
	searchLengthMax = 7

	// MaxLevel is the highest compression level.
	MaxLevel = 20
	// DefaultLevel is used when a level is 0.
	DefaultLevel = 1
)

// levelParams holds the parameters for each level, for inputs of up to
// 128 KiB and for larger inputs.
var levelParams = [2][MaxLevel + 1]Params{
	{
		{17, 12, 12, 1, 4, StrategyFast}, // level 0 (unused)
		{17, 12, 13, 1, 6, StrategyFast},
		{17, 15, 16, 1, 5, StrategyFast},
		{17, 16, 17, 1, 5, StrategyFast},
		{17, 13, 15, 2, 4, StrategyGreedy},
		{17, 15, 17, 3, 4, StrategyGreedy},
		{17, 14, 17, 3, 4, StrategyLazy},
		{17, 16, 17, 4, 4, StrategyLazy},
		{17, 16, 17, 4, 4, StrategyLazy},
		{17, 17, 16, 5, 4, StrategyLazy},
		{17, 17, 16, 6, 4, StrategyLazy},
		{17, 17, 16, 7, 4, StrategyLazy},
		{17, 17, 16, 8, 4, StrategyLazy},
		{17, 18, 16, 4, 4, StrategyLazy},
		{17, 18, 16, 5, 4, StrategyLazy},
		{17, 18, 16, 6, 4, StrategyLazy},
		{17, 18, 16, 7, 4, StrategyLazy},
		{17, 18, 16, 8, 4, StrategyLazy},
		{17, 18, 16, 9, 4, StrategyLazy},
		{17, 18, 16, 10, 4, StrategyLazy},
		{17, 18, 18, 12, 4, StrategyLazy},
	},
	{
		{18, 12, 12, 1, 4, StrategyFast}, // level 0 (unused)
		{18, 14, 14, 1, 7, StrategyFast},
		{19, 15, 16, 1, 6, StrategyFast},
		{20, 18, 20, 1, 6, StrategyFast},
		{21, 19, 21, 1, 6, StrategyFast},
		{20, 13, 18, 5, 5, StrategyGreedy},
		{20, 17, 19, 3, 5, StrategyGreedy},
		{21, 17, 20, 3, 5, StrategyLazy},
		{21, 19, 20, 3, 5, StrategyLazy},
		{21, 20, 20, 3, 5, StrategyLazy},
		{21, 19, 20, 4, 5, StrategyLazy},
		{22, 20, 22, 4, 5, StrategyLazy},
		{22, 20, 22, 5, 5, StrategyLazy},
		{22, 21, 22, 5, 5, StrategyLazy},
		{22, 22, 23, 5, 5, StrategyLazy},
		{23, 23, 23, 5, 5, StrategyLazy},
		{23, 21, 22, 5, 5, StrategyLazy},
		{23, 24, 23, 4, 5, StrategyLazy},
		{25, 24, 23, 5, 5, StrategyLazy},
		{25, 26, 23, 5, 5, StrategyLazy},
		{26, 27, 24, 6, 5, StrategyLazy},
	},
}

// LevelParams returns the parameters for a compression level. Levels are
// clamped to 1..MaxLevel, and 0 means DefaultLevel. srcSizeHint is the
// expected input size, or 0 if it isn't known. The result has been
// validated.
func LevelParams(level int, srcSizeHint int) Params {
	if level == 0 {
		level = DefaultLevel
	}
	level = min(max(level, 1), MaxLevel)
	table := 0
	if srcSizeHint == 0 || srcSizeHint > MaxBlockSize {
		table = 1
	}
	p := levelParams[table][level]
	p.Validate(srcSizeHint)
	return p
}

// Validate clamps every field of p into its allowed range. If srcSizeHint
// is non-zero, the window is shrunk to fit it.
func (p *Params) Validate(srcSizeHint int) {
	p.WindowLog = min(max(p.WindowLog, WindowLogMin), WindowLogMax)
	if srcSizeHint > 0 && srcSizeHint < 1<<WindowLogMax {
		srcLog := max(bits.Len(uint(srcSizeHint-1)), WindowLogMin)
		p.WindowLog = min(p.WindowLog, srcLog)
	}

	p.ChainLog = min(max(p.ChainLog, chainLogMin), p.WindowLog+1)
	p.HashLog = min(max(p.HashLog, hashLogMin), hashLogMax)
	p.SearchLog = min(max(p.SearchLog, searchLogMin), p.ChainLog-1)
	p.SearchLength = min(max(p.SearchLength, searchLengthMin), searchLengthMax)
	if p.Strategy < StrategyFast || p.Strategy > StrategyLazy {
		p.Strategy = StrategyLazy
	}
}

// check returns an error if p has a field out of range.
func (p Params) check() error {
	v := p
	v.Validate(0)
	if v != p {
		return fmt.Errorf("%w: %+v", ErrParameterUnsupported, p)
	}
	return nil
}

// matchFinder builds the match finder that p describes.
func (p Params) matchFinder() zpack.MatchFinder {
	maxDistance := 1<<p.WindowLog - 1
	switch p.Strategy {
	case StrategyFast:
		return &zpack.FastMatcher{
			HashLog:      p.HashLog,
			SearchLength: p.SearchLength,
			MaxDistance:  maxDistance,
		}
	case StrategyGreedy:
		return &zpack.HashChain{
			HashLog:      p.HashLog,
			ChainLog:     p.ChainLog,
			SearchLen:    1 << p.SearchLog,
			SearchLength: p.SearchLength,
			MaxDistance:  maxDistance,
			Parser:       &zpack.GreedyParser{},
		}
	default:
		return &zpack.HashChain{
			HashLog:      p.HashLog,
			ChainLog:     p.ChainLog,
			SearchLen:    1 << p.SearchLog,
			SearchLength: p.SearchLength,
			MaxDistance:  maxDistance,
			Parser:       &zpack.LazyParser{},
		}
	}
}
