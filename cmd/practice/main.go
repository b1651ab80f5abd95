package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	serverrun "github.com/PenteractAI/python-practice-platform/internal/cmd/server"
	cfgpkg "github.com/PenteractAI/python-practice-platform/internal/config"
	pebblestore "github.com/PenteractAI/python-practice-platform/internal/storage/pebble"
	logpkg "github.com/PenteractAI/python-practice-platform/pkg/log"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	level := os.Getenv("PRACTICE_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "practice",
		Short: "Python practice platform CLI",
		Long:  "practice manages the grading server and basic operator tasks.",
	}

	rootCmd.AddCommand(newServerCommand())
	rootCmd.AddCommand(newLocksCommand())
	rootCmd.AddCommand(newAssignmentCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServerCommand() *cobra.Command {
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	startCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the grading server (HTTP API, workers, result consumer)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			httpAddr, _ := cmd.Flags().GetString("http")
			graderURL, _ := cmd.Flags().GetString("grader")
			databaseURL, _ := cmd.Flags().GetString("database-url")
			workers, _ := cmd.Flags().GetInt("workers")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			fsyncIntervalMs, _ := cmd.Flags().GetInt("fsync-interval-ms")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")
			exposeErrors, _ := cmd.Flags().GetBool("expose-errors")

			mode := pebblestore.FsyncModeAlways
			switch fsyncMode {
			case "never":
				mode = pebblestore.FsyncModeNever
			case "interval":
				mode = pebblestore.FsyncModeInterval
			case "always":
				mode = pebblestore.FsyncModeAlways
			default:
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfgpkg.FromEnv(&cfg)
			// Flags win over file and environment.
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if httpAddr != "" {
				cfg.HTTPAddr = httpAddr
			}
			if graderURL != "" {
				cfg.GraderURL = graderURL
			}
			if databaseURL != "" {
				cfg.DatabaseURL = databaseURL
			}
			if workers > 0 {
				cfg.Workers = workers
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logFormat != "" {
				cfg.LogFormat = logFormat
			}
			if exposeErrors {
				cfg.ExposeErrors = true
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serverrun.Run(ctx, serverrun.Options{
				Fsync:         mode,
				FsyncInterval: time.Duration(fsyncIntervalMs) * time.Millisecond,
				Config:        cfg,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	startCmd.Flags().String("config", os.Getenv("PRACTICE_CONFIG"), "Path to JSON config file")
	startCmd.Flags().String("data-dir", "", "Data directory (defaults to OS-specific application data directory)")
	startCmd.Flags().String("http", "", "HTTP listen address (default :7777)")
	startCmd.Flags().String("grader", "", "Grading sandbox base URL (default http://localhost:7000)")
	startCmd.Flags().String("database-url", "", "Postgres DSN (empty runs the in-memory store)")
	startCmd.Flags().Int("workers", 0, "Number of grading workers (default 1)")
	startCmd.Flags().String("fsync", "always", "Fsync mode: always|interval|never")
	startCmd.Flags().Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms")
	startCmd.Flags().String("log-level", os.Getenv("PRACTICE_LOG_LEVEL"), "Log level: debug|info|warn|error")
	startCmd.Flags().String("log-format", os.Getenv("PRACTICE_LOG_FORMAT"), "Log format: text|json")
	startCmd.Flags().Bool("expose-errors", false, "Report full error detail to API callers")
	serverCmd.AddCommand(startCmd)
	return serverCmd
}

func newLocksCommand() *cobra.Command {
	locksCmd := &cobra.Command{Use: "locks", Short: "Submission lock operations"}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List held submission locks",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(apiURL() + "/v1/admin/locks")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			fmt.Println(string(bytes.TrimSpace(body)))
			return nil
		},
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all submission locks (recovery tool for stranded locks)",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Post(apiURL()+"/v1/admin/locks/clear", "application/json", nil)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			fmt.Println(string(bytes.TrimSpace(body)))
			return nil
		},
	}
	locksCmd.AddCommand(listCmd, clearCmd)
	return locksCmd
}

func newAssignmentCommand() *cobra.Command {
	assignmentCmd := &cobra.Command{Use: "assignment", Short: "Assignment operations"}
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add an assignment to the course",
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			order, _ := cmd.Flags().GetInt("order")
			handoutFile, _ := cmd.Flags().GetString("handout-file")
			testFile, _ := cmd.Flags().GetString("test-file")

			handout, err := readOptionalFile(handoutFile)
			if err != nil {
				return err
			}
			testCode, err := readOptionalFile(testFile)
			if err != nil {
				return err
			}

			b, _ := json.Marshal(map[string]any{
				"title":    title,
				"order":    order,
				"handout":  handout,
				"testCode": testCode,
			})
			resp, err := http.Post(apiURL()+"/v1/assignments", "application/json", bytes.NewReader(b))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			fmt.Println("status:", resp.Status)
			fmt.Println(string(bytes.TrimSpace(body)))
			return nil
		},
	}
	addCmd.Flags().String("title", "", "Assignment title")
	addCmd.Flags().Int("order", 0, "Position in the course progression")
	addCmd.Flags().String("handout-file", "", "File with the assignment handout text")
	addCmd.Flags().String("test-file", "", "File with the grader test code")
	_ = addCmd.MarkFlagRequired("title")
	_ = addCmd.MarkFlagRequired("order")
	assignmentCmd.AddCommand(addCmd)
	return assignmentCmd
}

func readOptionalFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func apiURL() string {
	if v := os.Getenv("PRACTICE_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:7777"
}
