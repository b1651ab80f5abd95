package config

import (
	"os"
	"strconv"
)

// FromEnv overlays PRACTICE_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	setString(&cfg.HTTPAddr, "PRACTICE_HTTP_ADDR")
	setString(&cfg.DataDir, "PRACTICE_DATA_DIR")
	setString(&cfg.DatabaseURL, "PRACTICE_DATABASE_URL")
	setString(&cfg.GraderURL, "PRACTICE_GRADER_URL")
	setString(&cfg.ConsumerID, "PRACTICE_CONSUMER_ID")
	setInt(&cfg.Workers, "PRACTICE_WORKERS")

	setString(&cfg.Queues.TaskStream, "PRACTICE_TASK_STREAM")
	setString(&cfg.Queues.TaskGroup, "PRACTICE_TASK_GROUP")
	setString(&cfg.Queues.ResultStream, "PRACTICE_RESULT_STREAM")
	setString(&cfg.Queues.ResultGroup, "PRACTICE_RESULT_GROUP")

	setInt(&cfg.PollBlockMs, "PRACTICE_POLL_BLOCK_MS")
	setInt(&cfg.LeaseMs, "PRACTICE_LEASE_MS")
	setInt(&cfg.StatusPollMs, "PRACTICE_STATUS_POLL_MS")

	if v := os.Getenv("PRACTICE_EXPOSE_ERRORS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ExposeErrors = b
		}
	}

	setString(&cfg.LogLevel, "PRACTICE_LOG_LEVEL")
	setString(&cfg.LogFormat, "PRACTICE_LOG_FORMAT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
