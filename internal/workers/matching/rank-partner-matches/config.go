// internal/workers/matching/rank-partner-matches/config.go
package rankpartnermatches

import "time"

type Config struct {
	Timeout     time.Duration
	CacheTTL    time.Duration
	DefaultTopN int
	MaxTopN     int
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Timeout == 0 {
		out.Timeout = 30 * time.Second
	}
	if out.DefaultTopN == 0 {
		out.DefaultTopN = 10
	}
	if out.MaxTopN == 0 {
		out.MaxTopN = 50
	}
	return &out
}
