package config

import (
	"encoding/json"
	"os"

	"github.com/PenteractAI/python-practice-platform/pkg/id"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// HTTPAddr is the listen address of the client-facing API.
	HTTPAddr string `json:"httpAddr"`
	// DataDir holds the embedded broker state (queues, locks).
	DataDir string `json:"dataDir"`
	// DatabaseURL is the Postgres DSN for assignments and submissions.
	// When empty the server runs against the in-memory store.
	DatabaseURL string `json:"databaseURL"`
	// GraderURL is the base URL of the external code execution sandbox.
	GraderURL string `json:"graderURL"`

	// Workers is the number of concurrent grading workers.
	Workers int `json:"workers"`
	// ConsumerID is the explicit consumer identity used for queue group
	// subscriptions. Defaulted once per process when left empty.
	ConsumerID string `json:"consumerID"`

	Queues QueueConfig `json:"queues"`

	// PollBlockMs bounds a blocking group read so loops stay responsive
	// to shutdown.
	PollBlockMs int `json:"pollBlockMs"`
	// LeaseMs is how long a delivered-but-unacknowledged queue entry stays
	// assigned to one consumer before it is redelivered.
	LeaseMs int `json:"leaseMs"`
	// StatusPollMs is the status watcher's store poll interval.
	StatusPollMs int `json:"statusPollMs"`

	// ExposeErrors reports full error detail to API callers. Keep off in
	// production deployments.
	ExposeErrors bool `json:"exposeErrors"`

	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"`
}

// QueueConfig names the two durable streams and their consumer groups.
type QueueConfig struct {
	TaskStream   string `json:"taskStream"`
	TaskGroup    string `json:"taskGroup"`
	ResultStream string `json:"resultStream"`
	ResultGroup  string `json:"resultGroup"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:  ":7777",
		GraderURL: "http://localhost:7000",
		Workers:   1,
		Queues: QueueConfig{
			TaskStream:   "grading-tasks",
			TaskGroup:    "grading-task-group",
			ResultStream: "grading-results",
			ResultGroup:  "grading-results-group",
		},
		PollBlockMs:  1000,
		LeaseMs:      30_000,
		StatusPollMs: 3000,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Normalize fills derived defaults that cannot be expressed statically:
// the per-process consumer identity and the data directory.
func (c *Config) Normalize() {
	if c.ConsumerID == "" {
		c.ConsumerID = id.ConsumerID("practice-api")
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
}
