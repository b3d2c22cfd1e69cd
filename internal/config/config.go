package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr         string
	PingInterval time.Duration
	PongWait     time.Duration
	TurnTimeout  time.Duration
	Rematch      bool
	Debug        bool
}

// Load reads a .env file when present, then the environment, falling back
// to defaults that match the protocol's documented timings.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:         getString("ADDR", ":8080"),
		PingInterval: getDuration("PING_INTERVAL", 500*time.Millisecond),
		PongWait:     getDuration("PONG_WAIT", 2*time.Second),
		TurnTimeout:  getDuration("TURN_TIMEOUT", 20*time.Second),
		Rematch:      getBool("REMATCH", true),
		Debug:        getBool("DEBUG", false),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
