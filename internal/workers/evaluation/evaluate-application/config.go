// internal/workers/evaluation/evaluate-application/config.go
package evaluateapplication

import (
	"time"

	"social-evaluation/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

// LoadConfig reads the job timeout of this task type, falling back to the
// evaluation run timeout when the worker section sets none.
func LoadConfig(cfg *config.Config) *Config {
	timeout := config.GetDuration(cfg.Evaluation.RunTimeout)
	if wc, ok := cfg.Workers[TaskType]; ok && wc.Timeout > 0 {
		timeout = config.GetDuration(wc.Timeout)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Config{Timeout: timeout}
}
