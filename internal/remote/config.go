package remote

import "time"

// DefaultBaseURL is where the collaborator listens when run locally
const DefaultBaseURL = "http://localhost:8000/api/v1"

// Config holds the HTTP client settings
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Consecutive failures before calls are rejected locally, and how long
	// they stay rejected before a probe is let through.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         DefaultBaseURL,
		Timeout:         60 * time.Second,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}
