// internal/workers/discovery/discover-places/config.go
package discoverplaces

import (
	"time"

	"place-discovery/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// ScoreFloor clamps displayScore in the output; totalScore is reported unclamped.
	ScoreFloor float64
}

func LoadConfig(wc config.WorkerConfig) *Config {
	timeout := config.GetDuration(wc.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{
		Timeout:    timeout,
		ScoreFloor: 0,
	}
}
