package serverrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/PenteractAI/python-practice-platform/internal/cache"
	cfgpkg "github.com/PenteractAI/python-practice-platform/internal/config"
	"github.com/PenteractAI/python-practice-platform/internal/grader"
	"github.com/PenteractAI/python-practice-platform/internal/runtime"
	httpserver "github.com/PenteractAI/python-practice-platform/internal/server/http"
	"github.com/PenteractAI/python-practice-platform/internal/services/grading"
	"github.com/PenteractAI/python-practice-platform/internal/services/status"
	"github.com/PenteractAI/python-practice-platform/internal/services/submissions"
	pebblestore "github.com/PenteractAI/python-practice-platform/internal/storage/pebble"
	"github.com/PenteractAI/python-practice-platform/internal/store"
	"github.com/PenteractAI/python-practice-platform/internal/store/inmem"
	"github.com/PenteractAI/python-practice-platform/internal/store/postgres"
	logpkg "github.com/PenteractAI/python-practice-platform/pkg/log"
)

// Options for running the server process.
type Options struct {
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Run starts the API server, the grading workers, and the result
// consumer, and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so direct
	// callers get signal handling for free.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	cfg.Normalize()

	logger, err := logpkg.ApplyConfig(&logpkg.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	// Route stdlib logs (Pebble's in particular) through the facade.
	logpkg.RedirectStdLog(logger)

	storeDir := filepath.Join(cfg.DataDir, "store")
	rt, err := runtime.Open(runtime.Options{DataDir: storeDir, Fsync: opts.Fsync, FsyncInterval: opts.FsyncInterval, Config: cfg})
	if err != nil {
		return err
	}
	defer rt.Close()

	tasks, err := rt.OpenQueue(cfg.Queues.TaskStream)
	if err != nil {
		return err
	}
	results, err := rt.OpenQueue(cfg.Queues.ResultStream)
	if err != nil {
		return err
	}
	// The groups must exist before the API accepts submissions: a group
	// created after a publish starts its cursor at the tail and would
	// never deliver the earlier entry.
	if err := tasks.CreateGroup(cfg.Queues.TaskGroup); err != nil {
		return err
	}
	if err := results.CreateGroup(cfg.Queues.ResultGroup); err != nil {
		return err
	}

	subStore, asgStore, err := openStores(sctx, cfg, logger)
	if err != nil {
		return err
	}
	cached := cache.NewAssignmentCache(asgStore)

	logger.Info("starting practice platform server",
		logpkg.Str("http", cfg.HTTPAddr),
		logpkg.Str("grader", cfg.GraderURL),
		logpkg.Int("workers", cfg.Workers),
		logpkg.Str("consumer_id", cfg.ConsumerID),
		logpkg.Str("data_dir", cfg.DataDir),
		logpkg.Bool("postgres", cfg.DatabaseURL != ""),
	)

	gw := submissions.NewGateway(submissions.GatewayOptions{
		Logger:      logger,
		Submissions: subStore,
		Assignments: cached,
		Locks:       rt.Locks(),
		Tasks:       tasks,
	})
	statusSvc := status.NewService(status.Options{
		Logger:      logger,
		Submissions: subStore,
		Results:     results,
		Interval:    time.Duration(cfg.StatusPollMs) * time.Millisecond,
	})

	block := time.Duration(cfg.PollBlockMs) * time.Millisecond
	lease := time.Duration(cfg.LeaseMs) * time.Millisecond
	runner := grader.NewHTTPRunner(cfg.GraderURL)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		w := grading.NewWorker(grading.WorkerOptions{
			Logger:   logger,
			Tasks:    tasks,
			Results:  results,
			Runner:   runner,
			Group:    cfg.Queues.TaskGroup,
			Consumer: fmt.Sprintf("%s-w%d", cfg.ConsumerID, i),
			Block:    block,
			Lease:    lease,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(sctx); err != nil && sctx.Err() == nil {
				logger.Error("grading worker exited", logpkg.Err(err))
			}
		}()
	}

	consumer := grading.NewConsumer(grading.ConsumerOptions{
		Logger:      logger,
		Results:     results,
		Submissions: subStore,
		Locks:       rt.Locks(),
		Group:       cfg.Queues.ResultGroup,
		Consumer:    cfg.ConsumerID + "-results",
		Block:       block,
		Lease:       lease,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Run(sctx); err != nil && sctx.Err() == nil {
			logger.Error("result consumer exited", logpkg.Err(err))
		}
	}()

	hsrv := httpserver.New(httpserver.Options{
		Runtime:     rt,
		Logger:      logger,
		Gateway:     gw,
		Status:      statusSvc,
		Assignments: cached,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, cfg.HTTPAddr); err != nil && sctx.Err() == nil {
			logger.Error("http server exited", logpkg.Err(err))
		}
	}()

	<-sctx.Done()
	// Shut servers and loops down before closing the runtime/DB to avoid
	// races on the storage handle.
	hsrv.Close()
	wg.Wait()
	return nil
}

// openStores picks the relational backend: Postgres when a DSN is
// configured, the in-memory store otherwise.
func openStores(ctx context.Context, cfg cfgpkg.Config, logger logpkg.Logger) (store.SubmissionStore, store.AssignmentStore, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("no database configured, using in-memory store")
		mem := inmem.NewDB()
		return inmem.NewSubmissionStore(mem), inmem.NewAssignmentStore(mem), nil
	}
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewSubmissionStore(db), postgres.NewAssignmentStore(db), nil
}
