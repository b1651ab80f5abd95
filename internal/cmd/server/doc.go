// Package serverrun exposes a shared Run entrypoint used by the CLI to
// start the practice-platform server: the HTTP API, the grading workers,
// and the result consumer, with lifecycle and shutdown handling.
//
// Example:
//
//	opts := serverrun.Options{Fsync: pebblestore.FsyncModeAlways, Config: config.Default()}
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, opts)
package serverrun
