package poll

import "time"

// Config holds defaults applied to jobs registered without an interval
type Config struct {
	Interval time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Second,
	}
}
