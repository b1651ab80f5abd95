package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/PenteractAI/python-practice-platform/internal/cache"
	"github.com/PenteractAI/python-practice-platform/internal/runtime"
	"github.com/PenteractAI/python-practice-platform/internal/services/status"
	"github.com/PenteractAI/python-practice-platform/internal/services/submissions"
	"github.com/PenteractAI/python-practice-platform/pkg/log"
)

// Server is the platform's REST gateway: JSON endpoints for submitting
// and course progress, SSE endpoints for status notification and the
// admin result tail.
type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger log.Logger

	gateway     *submissions.Gateway
	status      *status.Service
	assignments *cache.AssignmentCache

	exposeErrors bool
}

// Options wires the server's collaborators.
type Options struct {
	Runtime     *runtime.Runtime
	Logger      log.Logger
	Gateway     *submissions.Gateway
	Status      *status.Service
	Assignments *cache.AssignmentCache
}

// New builds the HTTP server and its route table.
func New(opts Options) *Server {
	mux := http.NewServeMux()
	s := &Server{
		rt:           opts.Runtime,
		logger:       opts.Logger.With(log.Component("http")),
		gateway:      opts.Gateway,
		status:       opts.Status,
		assignments:  opts.Assignments,
		exposeErrors: opts.Runtime.Config().ExposeErrors,
		srv:          &http.Server{Handler: cors(mux)},
	}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/grade", s.handleGrade)
	mux.HandleFunc("/v1/assignment", s.handleCurrentAssignment)
	mux.HandleFunc("/v1/score", s.handleScore)
	mux.HandleFunc("/v1/assignments", s.handleAssignments)
	mux.HandleFunc("/v1/submissions/status", s.handleStatusSSE)
	mux.HandleFunc("/v1/admin/results/tail", s.handleResultTailSSE)
	mux.HandleFunc("/v1/admin/locks", s.handleLocks)
	mux.HandleFunc("/v1/admin/locks/clear", s.handleLocksClear)
	return s
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http server listening", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_serving"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError hides internal detail unless the deployment opted into
// exposing it.
func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	msg := http.StatusText(code)
	if s.exposeErrors && err != nil {
		msg = err.Error()
	}
	s.writeJSON(w, code, map[string]string{"error": msg})
}
