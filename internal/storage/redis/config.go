package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// TTL settings. Finished races are retained for the results and
	// leaderboard collaborators, then expire.
	RaceTTL        time.Duration
	ParticipantTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379",
		PoolSize:       10,
		MinIdleConns:   2,
		RaceTTL:        24 * time.Hour,
		ParticipantTTL: 24 * time.Hour,
	}
}
