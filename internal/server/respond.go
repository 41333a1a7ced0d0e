package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"codeberg.org/snonux/studycards/internal/apperr"
	"codeberg.org/snonux/studycards/internal/remote"
)

type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, errorBody{Detail: detail})
}

// respondFailure maps a backend error to a status and detail
func (s *Server) respondFailure(w http.ResponseWriter, op string, err error) {
	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "op", op, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "op", op, "status", status, "error", err)
	}
	s.respondError(w, status, detail)
}

func classify(err error) (int, string) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		if verr.Field == "" {
			return http.StatusBadRequest, verr.Message
		}
		return http.StatusBadRequest, verr.Field + ": " + verr.Message
	}

	var f *remote.Failure
	if errors.As(err, &f) {
		switch {
		case errors.Is(f, remote.ErrBreakerOpen):
			return http.StatusServiceUnavailable, "Service temporarily unavailable"
		case f.Status != 0 && f.Message != "":
			return f.Status, f.Message
		case f.Status != 0:
			return f.Status, http.StatusText(f.Status)
		}
		return http.StatusBadGateway, f.Error()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "Request timed out"
	}
	return http.StatusInternalServerError, "Error: " + err.Error()
}
