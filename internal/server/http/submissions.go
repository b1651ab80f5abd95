package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/PenteractAI/python-practice-platform/internal/services/submissions"
	"github.com/PenteractAI/python-practice-platform/internal/store"
	"github.com/PenteractAI/python-practice-platform/pkg/log"
)

func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req submissions.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	sub, err := s.gateway.Submit(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, submissions.ErrConcurrentSubmission):
			s.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, submissions.ErrUnknownAssignment):
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, submissions.ErrInvalidUser), isValidationError(err):
			s.writeError(w, http.StatusBadRequest, err)
		default:
			s.logger.Error("grade request failed", log.Err(err))
			s.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	s.writeJSON(w, http.StatusOK, sub)
}

type userReq struct {
	UserID string `json:"userUuid"`
}

func (s *Server) handleCurrentAssignment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req userReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	cur, err := s.gateway.Current(r.Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, submissions.ErrInvalidUser):
			s.writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, store.ErrNotFound):
			s.writeError(w, http.StatusNotFound, err)
		default:
			s.logger.Error("current assignment lookup failed", log.Err(err))
			s.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	s.writeJSON(w, http.StatusOK, cur)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req userReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	score, err := s.gateway.Score(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, submissions.ErrInvalidUser) {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		s.logger.Error("score lookup failed", log.Err(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"score": score})
}

func isValidationError(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}
