package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

type Config struct {
	//===============
	//  Paths
	//===============
	// Directory of the page database (crawl history oracle).
	pageDBPath string
	// Directory of the schedule store. Empty derives "<pageDBPath>_freqs".
	schedulePath string

	//===============
	// Scheduling
	//===============
	// Keep the schedule directory across runs. When false the data
	// files are removed on close.
	persist bool
	// Throttle slack. Negative disables the wall-clock throttle; when
	// >= 0 a page is withheld until 1/(freq*(1+margin)) seconds have
	// passed since its last crawl.
	margin float64
	// Retire a page after this many crawls. 0 means unlimited.
	maxNCrawls uint64
	// Initial store map size hint in bytes.
	mapSize int

	//===============
	// Loading
	//===============
	// Frequency assigned to pages without a usable rate estimate.
	freqDefault float64
	// Multiplier applied to a page's observed crawl rate. <= 0 keeps
	// every page on freqDefault.
	freqScale float64

	//===============
	// Drain pacing
	//===============
	// Global bound on emissions per second in the drain loop. <= 0
	// disables the bound.
	emitRate float64
	// Minimum delay in seconds between two emissions for one host.
	hostDelaySeconds float64
	// Requests per batch handed to the scheduler while draining.
	batchSize int
}

func defaultConfig() Config {
	return Config{
		persist:     true,
		margin:      -1.0,
		maxNCrawls:  0,
		mapSize:     1 << 30,
		freqDefault: 1.0 / 86400.0, // once a day
		freqScale:   -1.0,
		emitRate:    -1.0,
		batchSize:   64,
	}
}

// fileConfig mirrors the JSON layout of the config file. Only fields
// present in the file override defaults.
type fileConfig struct {
	PageDBPath       *string  `json:"pageDbPath"`
	SchedulePath     *string  `json:"schedulePath"`
	Persist          *bool    `json:"persist"`
	Margin           *float64 `json:"margin"`
	MaxNCrawls       *uint64  `json:"maxNCrawls"`
	MapSize          *int     `json:"mapSize"`
	FreqDefault      *float64 `json:"freqDefault"`
	FreqScale        *float64 `json:"freqScale"`
	EmitRate         *float64 `json:"emitRate"`
	HostDelaySeconds *float64 `json:"hostDelaySeconds"`
	BatchSize        *int     `json:"batchSize"`
}

// WithConfigFile loads the config file at path on top of defaults.
func WithConfigFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, ErrFileDoesNotExist
		}
		return Config{}, fmt.Errorf("%w: %v", ErrReadConfigFail, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfigParsingFail, err)
	}

	cfg := defaultConfig()
	if fc.PageDBPath != nil {
		cfg.pageDBPath = *fc.PageDBPath
	}
	if fc.SchedulePath != nil {
		cfg.schedulePath = *fc.SchedulePath
	}
	if fc.Persist != nil {
		cfg.persist = *fc.Persist
	}
	if fc.Margin != nil {
		cfg.margin = *fc.Margin
	}
	if fc.MaxNCrawls != nil {
		cfg.maxNCrawls = *fc.MaxNCrawls
	}
	if fc.MapSize != nil {
		cfg.mapSize = *fc.MapSize
	}
	if fc.FreqDefault != nil {
		cfg.freqDefault = *fc.FreqDefault
	}
	if fc.FreqScale != nil {
		cfg.freqScale = *fc.FreqScale
	}
	if fc.EmitRate != nil {
		cfg.emitRate = *fc.EmitRate
	}
	if fc.HostDelaySeconds != nil {
		cfg.hostDelaySeconds = *fc.HostDelaySeconds
	}
	if fc.BatchSize != nil {
		cfg.batchSize = *fc.BatchSize
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefaults returns the built-in defaults with the given page DB
// path. Used when no config file is supplied.
func WithDefaults(pageDBPath string) (Config, error) {
	cfg := defaultConfig()
	cfg.pageDBPath = pageDBPath
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.pageDBPath == "" {
		return fmt.Errorf("%w: pageDbPath is required", ErrInvalidConfig)
	}
	if math.IsNaN(c.margin) {
		return fmt.Errorf("%w: margin must not be NaN", ErrInvalidConfig)
	}
	if c.mapSize <= 0 {
		return fmt.Errorf("%w: mapSize must be positive", ErrInvalidConfig)
	}
	if math.IsNaN(c.freqDefault) || c.freqDefault <= 0 {
		return fmt.Errorf("%w: freqDefault must be positive", ErrInvalidConfig)
	}
	if c.batchSize <= 0 {
		return fmt.Errorf("%w: batchSize must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c Config) PageDBPath() string {
	return c.pageDBPath
}

func (c Config) SchedulePath() string {
	return c.schedulePath
}

func (c Config) Persist() bool {
	return c.persist
}

func (c Config) Margin() float64 {
	return c.margin
}

func (c Config) MaxNCrawls() uint64 {
	return c.maxNCrawls
}

func (c Config) MapSize() int {
	return c.mapSize
}

func (c Config) FreqDefault() float64 {
	return c.freqDefault
}

func (c Config) FreqScale() float64 {
	return c.freqScale
}

func (c Config) EmitRate() float64 {
	return c.emitRate
}

func (c Config) HostDelaySeconds() float64 {
	return c.hostDelaySeconds
}

func (c Config) BatchSize() int {
	return c.batchSize
}
