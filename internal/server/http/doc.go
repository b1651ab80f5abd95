// Package httpserver provides the REST gateway of the practice platform
// with SSE support for grading-status notifications and the admin result
// tail.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: config.Default()})
//	s := httpserver.New(httpserver.Options{Runtime: rt, Logger: logger, Gateway: gw, Status: st, Assignments: cached})
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":7777")
package httpserver
