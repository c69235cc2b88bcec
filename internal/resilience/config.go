package resilience

import (
	"time"
)

// FromRetryConfig converts config values to a fixed-delay RetryConfig.
// Non-positive values keep the defaults (3 attempts, 500ms).
func FromRetryConfig(maxAttempts, delayMs int) RetryConfig {
	cfg := FixedDelay(3, 500*time.Millisecond)
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if delayMs > 0 {
		cfg.InitialBackoff = time.Duration(delayMs) * time.Millisecond
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	return cfg
}
