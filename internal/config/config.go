package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr         string
	DBPath       string
	UploadDir    string
	ClientOrigin string
	SessionTTL   time.Duration
	RateLimits   RateLimits
}

type RateLimits struct {
	AuthPerWindow int
	AuthWindow    time.Duration
}

func Load() Config {
	addr := envString("NOESIS_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":5000"
		}
	}
	return Config{
		Addr:         addr,
		DBPath:       envString("NOESIS_DB", "noesis.db"),
		UploadDir:    envString("NOESIS_UPLOAD_DIR", "uploads"),
		ClientOrigin: envString("NOESIS_CLIENT_ORIGIN", "http://localhost:5173"),
		SessionTTL:   envDuration("NOESIS_SESSION_TTL", 7*24*time.Hour),
		RateLimits: RateLimits{
			AuthPerWindow: envInt("NOESIS_RL_AUTH_PER_WINDOW", 100),
			AuthWindow:    envDuration("NOESIS_RL_AUTH_WINDOW", 15*time.Minute),
		},
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
