// Package runtime wires storage, config, and facades into a single-node
// practice-platform instance. It exposes Open/Close, basic health checks,
// and helpers to open the queues and lock manager used by higher-level
// services.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	// Health
//	_ = rt.CheckHealth(context.Background())
//	// Open the task queue and publish
//	q, _ := rt.OpenQueue(cfg.Queues.TaskStream)
//	_, _ = q.Publish(context.Background(), []byte(`{"submissionId":1}`))
package runtime
