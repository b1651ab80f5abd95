package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Queues.TaskStream != "grading-tasks" || cfg.Queues.ResultStream != "grading-results" {
		t.Fatalf("unexpected stream names: %+v", cfg.Queues)
	}
	if cfg.PollBlockMs != 1000 || cfg.StatusPollMs != 3000 {
		t.Fatalf("unexpected poll defaults: %+v", cfg)
	}
	if cfg.ExposeErrors {
		t.Fatalf("errors must not be exposed by default")
	}
}

func TestLoadJSONOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "practice.json")
	body := `{"httpAddr":":9000","workers":4,"queues":{"taskStream":"tasks-x"}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" || cfg.Workers != 4 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Queues.TaskStream != "tasks-x" {
		t.Fatalf("nested override missing: %+v", cfg.Queues)
	}
	// untouched fields keep defaults
	if cfg.Queues.ResultStream != "grading-results" {
		t.Fatalf("default lost on partial file: %+v", cfg.Queues)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != Default().HTTPAddr {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestFromEnvOverlay(t *testing.T) {
	t.Setenv("PRACTICE_HTTP_ADDR", ":8111")
	t.Setenv("PRACTICE_WORKERS", "3")
	t.Setenv("PRACTICE_EXPOSE_ERRORS", "true")
	t.Setenv("PRACTICE_RESULT_GROUP", "results-b")
	cfg := Default()
	FromEnv(&cfg)
	if cfg.HTTPAddr != ":8111" || cfg.Workers != 3 || !cfg.ExposeErrors {
		t.Fatalf("env overlay not applied: %+v", cfg)
	}
	if cfg.Queues.ResultGroup != "results-b" {
		t.Fatalf("queue env overlay not applied: %+v", cfg.Queues)
	}
}

func TestNormalizeFillsConsumerID(t *testing.T) {
	cfg := Default()
	cfg.Normalize()
	if !strings.HasPrefix(cfg.ConsumerID, "practice-api-") {
		t.Fatalf("consumer id not defaulted: %q", cfg.ConsumerID)
	}
	if cfg.DataDir == "" {
		t.Fatalf("data dir not defaulted")
	}
}
