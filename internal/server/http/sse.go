package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/PenteractAI/python-practice-platform/internal/services/status"
	"github.com/PenteractAI/python-practice-platform/internal/store"
	"github.com/PenteractAI/python-practice-platform/pkg/log"
)

// sseWriter sends JSON values as SSE data events.
type sseWriter struct {
	w http.ResponseWriter
	r *http.Request
}

func (s sseWriter) send(v any) error {
	b, _ := json.Marshal(v)
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	_, err := s.w.Write([]byte("\n\n"))
	return err
}

func (s sseWriter) Context() context.Context { return s.r.Context() }

func (s sseWriter) Flush() error {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

type notifySink struct{ sseWriter }

func (s notifySink) Send(n status.Notification) error { return s.send(n) }

func (s *Server) handleStatusSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	submissionID, err := strconv.ParseInt(r.URL.Query().Get("submissionId"), 10, 64)
	if err != nil || submissionID <= 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("submissionId must be a positive integer"))
		return
	}
	sseHeaders(w)
	if err := s.status.Watch(submissionID, notifySink{sseWriter{w: w, r: r}}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Headers are already out; the event stream just ends.
			s.logger.Warn("status watch for unknown submission", log.Int64("submission_id", submissionID))
			return
		}
		if r.Context().Err() == nil {
			s.logger.Error("status watch failed", log.Int64("submission_id", submissionID), log.Err(err))
		}
	}
}

type tailSink struct{ sseWriter }

func (s tailSink) Send(it status.TailItem) error { return s.send(it) }

func (s *Server) handleResultTailSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	filter := r.URL.Query().Get("filter")
	if err := status.ValidateFilter(filter); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	sseHeaders(w)
	if err := s.status.TailResults(filter, tailSink{sseWriter{w: w, r: r}}); err != nil {
		if r.Context().Err() == nil {
			s.logger.Error("result tail failed", log.Err(err))
		}
	}
}
