package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	Workers         int
	QueueSize       int
	ShutdownTimeout time.Duration

	// TaskRetention is how long finished tasks stay queryable; zero
	// disables eviction entirely.
	TaskRetention time.Duration
	SweepInterval time.Duration

	// AssessCmd is the external assessment command; when it cannot be
	// resolved the service degrades to simulated results unless
	// RequireBackend is set.
	AssessCmd      string
	RequireBackend bool
	DefFile        string
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	return Config{
		HTTPAddr:        getString("HTTP_ADDR", ":5001"),
		Workers:         getInt("WORKERS", 4),
		QueueSize:       getInt("QUEUE_SIZE", 64),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		TaskRetention:   getDuration("TASK_RETENTION", time.Hour),
		SweepInterval:   getDuration("SWEEP_INTERVAL", 5*time.Minute),
		AssessCmd:       getString("ASSESS_CMD", ""),
		RequireBackend:  getBool("ASSESS_REQUIRE_BACKEND", false),
		DefFile:         getString("DEF_FILE", "teitok/config/markers_def.xml"),
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, def)
		return def
	}
	return parsed
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %t", key, v, def)
		return def
	}
	return parsed
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, v, def)
		return def
	}
	return parsed
}
