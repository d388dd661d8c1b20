package config

import (
	"fmt"
	"os"
	"time"
)

const (
	EngineMemory = "memory"
	EngineBadger = "badger"
)

type Config struct {
	StoreAddr string
	LogLevel  string

	// Engine selects the committed-state backend: "memory" or "badger".
	Engine string
	// DBPath is the badger data directory. Should exist and be writable.
	DBPath string

	// ExecTimeout is the wall-clock budget of one stored procedure
	// invocation. An invocation exceeding it is aborted and rolled back.
	ExecTimeout time.Duration
	// ExecRateLimit caps stored procedure executions per second. Zero
	// disables throttling. ExecRateBurst is the token bucket capacity.
	ExecRateLimit float64
	ExecRateBurst int64
}

func (c *Config) Validate() error {
	switch c.Engine {
	case EngineMemory:
	case EngineBadger:
		if c.DBPath == "" {
			return fmt.Errorf("badger engine requires a db path")
		}
	default:
		return fmt.Errorf("unknown storage engine %q", c.Engine)
	}
	if c.ExecTimeout < 0 {
		return fmt.Errorf("exec timeout must not be negative")
	}
	if c.ExecRateLimit > 0 && c.ExecRateBurst <= 0 {
		return fmt.Errorf("exec rate limit requires a positive burst")
	}
	return nil
}

func getLogLevel() (logLevel string) {
	logLevel = "info"
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	return &Config{
		StoreAddr:     "127.0.0.1:8132",
		LogLevel:      getLogLevel(),
		Engine:        EngineBadger,
		DBPath:        "/tmp/docstore",
		ExecTimeout:   5 * time.Second,
		ExecRateLimit: 0,
		ExecRateBurst: 1,
	}
}

func NewTestConfig() *Config {
	return &Config{
		LogLevel:      getLogLevel(),
		Engine:        EngineMemory,
		ExecTimeout:   time.Second,
		ExecRateLimit: 0,
		ExecRateBurst: 1,
	}
}
