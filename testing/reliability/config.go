package reliability

import (
	"os"
	"strconv"
	"time"
)

// ReliabilityConfig holds configuration for reliability testing.
type ReliabilityConfig struct {
	Level         string        // "basic" or "stress"
	Duration      time.Duration // Test duration for sustained tests
	MaxGoroutines int           // Maximum goroutines for concurrent tests
	SpansPerTask  int           // Spans each goroutine opens per round
}

// getReliabilityConfig reads configuration from environment variables.
func getReliabilityConfig() ReliabilityConfig {
	return ReliabilityConfig{
		Level:         getEnv("DURATIONZ_RELIABILITY_LEVEL", ""),
		Duration:      parseDuration(getEnv("DURATIONZ_RELIABILITY_DURATION", "5s")),
		MaxGoroutines: parseInt(getEnv("DURATIONZ_RELIABILITY_MAX_GOROUTINES", "100"), 100),
		SpansPerTask:  parseInt(getEnv("DURATIONZ_RELIABILITY_SPANS_PER_TASK", "200"), 200),
	}
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, fallback int) int {
	if value, err := strconv.Atoi(s); err == nil && value > 0 {
		return value
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	if duration, err := time.ParseDuration(s); err == nil {
		return duration
	}
	return 5 * time.Second
}

// skipUnlessEnabled skips reliability tests unless a level is set.
func skipUnlessEnabled(t interface{ Skip(args ...any) }) ReliabilityConfig {
	config := getReliabilityConfig()
	if config.Level == "" {
		t.Skip("DURATIONZ_RELIABILITY_LEVEL not set, skipping reliability tests")
	}
	return config
}
