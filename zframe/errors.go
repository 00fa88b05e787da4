package zframe

import "errors"

var (
	// ErrDstSizeTooSmall is returned when the output buffer can't hold the
	// result. Nothing is written past the end of the buffer.
	ErrDstSizeTooSmall = errors.New("destination buffer is too small")

	// ErrSrcSizeWrong is returned when the input is shorter than what it
	// declares, such as a truncated frame.
	ErrSrcSizeWrong = errors.New("src size incorrect")

	// ErrCorruptionDetected is returned when the input violates the format.
	ErrCorruptionDetected = errors.New("corrupted block detected")

	// ErrMemoryAllocation names buffer sizing failures. Go reports those
	// by panicking, so nothing in this package returns it; it is kept so
	// ErrorName covers the whole set of format error codes.
	ErrMemoryAllocation = errors.New("allocation error: not enough memory")

	// ErrGenericUnsupported names recognized but unimplemented features.
	// Every block type is implemented, so nothing in this package
	// returns it at present.
	ErrGenericUnsupported = errors.New("unsupported feature")

	// ErrPrefixUnknown is returned when the input doesn't start with Magic.
	ErrPrefixUnknown = errors.New("unknown frame descriptor")

	// ErrInitMissing is returned by a streaming call made before Init.
	ErrInitMissing = errors.New("context should be init first")

	// ErrParameterUnsupported is returned for parameters out of range.
	ErrParameterUnsupported = errors.New("unsupported parameter")
)

var errorNames = []struct {
	err  error
	name string
}{
	{ErrDstSizeTooSmall, "dstSize_tooSmall"},
	{ErrSrcSizeWrong, "srcSize_wrong"},
	{ErrCorruptionDetected, "corruption_detected"},
	{ErrMemoryAllocation, "memory_allocation"},
	{ErrGenericUnsupported, "GENERIC"},
	{ErrPrefixUnknown, "prefix_unknown"},
	{ErrInitMissing, "init_missing"},
	{ErrParameterUnsupported, "parameter_unsupported"},
}

// IsError reports whether err is (or wraps) one of this package's errors.
func IsError(err error) bool {
	return ErrorName(err) != ""
}

// ErrorName returns the short name of the package error that err is or
// wraps, or "" if there isn't one.
func ErrorName(err error) string {
	if err == nil {
		return ""
	}
	for _, e := range errorNames {
		if errors.Is(err, e.err) {
			return e.name
		}
	}
	return ""
}
