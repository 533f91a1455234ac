package scheduler

// Options configures one FreqScheduler instance.
type Options struct {
	// Persist keeps the schedule directory on Close. When false, the
	// data file and directory are removed at Close.
	Persist bool
	// Margin is the throttle slack. Negative disables throttling;
	// when >= 0 a page whose last crawl is less than
	// 1/(freq*(1+Margin)) seconds old is not handed out yet.
	Margin float64
	// MaxNCrawls retires a page once it reaches that many crawls.
	// 0 means unlimited.
	MaxNCrawls uint64
	// MapSize is the initial store map size hint in bytes.
	MapSize int
}

func DefaultOptions() Options {
	return Options{
		Persist:    true,
		Margin:     -1.0, // disabled
		MaxNCrawls: 0,
		MapSize:    1 << 30,
	}
}

// PageFreq is one externally supplied (hash, frequency) pair for
// LoadFromArray.
type PageFreq struct {
	Hash uint64
	Freq float32
}
