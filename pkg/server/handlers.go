package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/daviddao/agentbridge/pkg/bridge"
	"github.com/daviddao/agentbridge/pkg/contract"
	"github.com/daviddao/agentbridge/pkg/locks"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError maps store sentinels onto HTTP statuses. Anything
// unrecognized is a 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, bridge.ErrValidation), errors.Is(err, contract.ErrInvalid):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, locks.ErrNotFound), errors.Is(err, contract.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, locks.ErrAlreadyLocked):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, locks.ErrExpired):
		status, code = http.StatusGone, "expired"
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: err.Error()}})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", bridge.ErrValidation, err)
	}
	return nil
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var input bridge.PublishInput
	if err := decode(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.bridge.PublishMessage(input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	recipient := r.URL.Query().Get("recipient")
	messages, err := s.bridge.FetchPending(recipient)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"recipient": recipient,
		"messages":  messages,
		"count":     len(messages),
	})
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	var input struct {
		IDs []string `json:"ids"`
	}
	if err := decode(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	count, err := s.bridge.Acknowledge(input.IDs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"acknowledged": count})
}

func (s *Server) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	var input contract.CreateInput
	if err := decode(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.bridge.CreateContract(input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	c, err := s.bridge.GetContract(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateContract(w http.ResponseWriter, r *http.Request) {
	var input contract.UpdateInput
	if err := decode(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.bridge.UpdateContract(r.PathValue("id"), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

type lockRequest struct {
	Resource   string `json:"resource"`
	Holder     string `json:"holder,omitempty"`
	TTLSeconds int    `json:"ttl_seconds,omitempty"`
}

func (r lockRequest) ttl() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

func (s *Server) handleAcquireLock(w http.ResponseWriter, r *http.Request) {
	var input lockRequest
	if err := decode(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	lock, err := s.bridge.AcquireLock(input.Resource, input.Holder, input.ttl())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, lock)
}

func (s *Server) handleRenewLock(w http.ResponseWriter, r *http.Request) {
	var input lockRequest
	if err := decode(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	lock, err := s.bridge.RenewLock(input.Resource, input.ttl())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, lock)
}

func (s *Server) handleReleaseLock(w http.ResponseWriter, r *http.Request) {
	var input lockRequest
	if err := decode(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.bridge.ReleaseLock(input.Resource); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"resource": input.Resource, "released": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.bridge.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
