// internal/workers/financials/fetch-financials/config.go
package fetchfinancials

import (
	"time"

	"kurio/internal/common/config"
)

// Config bounds one job. An uncached lookup makes four EDGAR requests.
type Config struct {
	Timeout time.Duration
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Config{Timeout: timeout}
}
