// internal/workers/rag/ask-question/config.go
package askquestion

import (
	"time"

	"kurio/internal/common/config"
)

// Config bounds one job. Ask retries internally, so the budget covers every attempt.
type Config struct {
	Timeout time.Duration
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Config{Timeout: timeout}
}
