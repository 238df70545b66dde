package engine

// Strategy identifies which copy path an operation used.
type Strategy int

const (
	// StrategySmall reads the whole file into one buffer sized to the
	// file, hashes it once, and writes it once. For files under the
	// threshold the fixed cost of the chunk loop, progress sampling,
	// and repeated hash updates exceeds its benefit.
	StrategySmall Strategy = iota

	// StrategyStreamed runs the chunked read, hash, write loop.
	StrategyStreamed
)

func (s Strategy) String() string {
	switch s {
	case StrategySmall:
		return "small"
	case StrategyStreamed:
		return "streamed"
	default:
		return "unknown"
	}
}

// SelectStrategy classifies a file by size. Pure function, no error
// conditions.
func SelectStrategy(fileSize int64) Strategy {
	if fileSize < SmallFileThreshold {
		return StrategySmall
	}
	return StrategyStreamed
}
