// Package config provides loading and environment overlay for the
// platform's runtime configuration. It exposes a Default() baseline, JSON
// file loading, and a PRACTICE_* env overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/practice.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	cfg.Normalize()
package config
