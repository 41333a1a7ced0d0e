package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"codeberg.org/snonux/studycards/internal/image"
)

type textRequest struct {
	Text string `json:"text" validate:"required,min=10"`
}

type speechRequest struct {
	Text string `json:"text" validate:"required,max=4096"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleGenerateText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.backend.GenerateFromText(r.Context(), req.Text)
	if err != nil {
		s.respondFailure(w, "generate-from-text", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	extraction, err := s.backend.ExtractText(r.Context(), upload)
	if err != nil {
		s.respondFailure(w, "extract-text", err)
		return
	}
	s.respondJSON(w, http.StatusOK, extraction)
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	result, err := s.backend.GenerateFromImage(r.Context(), upload)
	if err != nil {
		s.respondFailure(w, "generate-from-image", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if !s.decode(w, r, &req) {
		return
	}

	clip, err := s.backend.SynthesizeAudio(r.Context(), req.Text)
	if err != nil {
		s.respondFailure(w, "synthesize-audio", err)
		return
	}

	contentType := clip.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(clip.Data)))
	w.Header().Set("Content-Disposition", `attachment; filename="flashcard.mp3"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(clip.Data); err != nil {
		s.logger.Warn("failed to write audio response", "error", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.backend.FetchStatistics(r.Context())
	if err != nil {
		s.respondFailure(w, "fetch-statistics", err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleStatsReset(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.ResetStatistics(r.Context()); err != nil {
		s.respondFailure(w, "reset-statistics", err)
		return
	}
	s.respondJSON(w, http.StatusOK, messageResponse{Message: "Statistics reset successfully"})
}

// decode reads a JSON body into v and validates it, answering 400 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.respondError(w, http.StatusBadRequest, validationDetail(err))
		return false
	}
	return true
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s should have at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s should have at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// readUpload reads the multipart "file" part as an image upload
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*image.Upload, bool) {
	// room for the multipart envelope around a maximal image
	const limit = image.MaxUploadBytes + 64*1024
	if r.ContentLength > limit {
		s.respondError(w, http.StatusRequestEntityTooLarge, "File too large")
		return nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			s.respondError(w, http.StatusRequestEntityTooLarge, "File too large")
			return nil, false
		}
		s.respondError(w, http.StatusBadRequest, "No file uploaded")
		return nil, false
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		s.respondError(w, http.StatusBadRequest, "File must be an image")
		return nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, image.MaxUploadBytes+1))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to read upload")
		return nil, false
	}
	if len(data) > image.MaxUploadBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, "File too large")
		return nil, false
	}
	return image.NewUpload(header.Filename, contentType, data), true
}
