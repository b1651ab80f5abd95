package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PenteractAI/python-practice-platform/internal/store"
	"github.com/PenteractAI/python-practice-platform/pkg/log"
)

// handleAssignments serves the assignment catalog (GET) and lets an
// operator add one (POST). Adds flush the read cache.
func (s *Server) handleAssignments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		all, err := s.assignments.All(r.Context())
		if err != nil {
			s.logger.Error("listing assignments failed", log.Err(err))
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.writeJSON(w, http.StatusOK, all)
	case http.MethodPost:
		var req struct {
			Title    string `json:"title"`
			Order    int    `json:"order"`
			Handout  string `json:"handout"`
			TestCode string `json:"testCode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.Title == "" || req.Order <= 0 {
			s.writeError(w, http.StatusBadRequest, errors.New("title and a positive order are required"))
			return
		}
		added, err := s.assignments.Add(r.Context(), store.Assignment{
			Title:    req.Title,
			Order:    req.Order,
			Handout:  req.Handout,
			TestCode: req.TestCode,
		})
		if err != nil {
			s.logger.Error("adding assignment failed", log.Err(err))
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.logger.Info("assignment added", log.Int64("assignment_id", added.ID), log.Int("order", added.Order))
		s.writeJSON(w, http.StatusCreated, added)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	held, err := s.rt.Locks().List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"locks": held, "count": len(held)})
}

func (s *Server) handleLocksClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	n, err := s.rt.Locks().Clear()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Warn("submission locks cleared", log.Int("count", n))
	s.writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}
