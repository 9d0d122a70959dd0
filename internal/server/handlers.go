package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/omriShneor/project_gochi/internal/pet"
)

const maxRequestBytes = 64 << 10

// respondRequest mirrors pet.Input with pointers so a missing field can be told apart
// from an empty one
type respondRequest struct {
	UserMessage *string    `json:"userMessage"`
	State       *pet.State `json:"state"`
}

// Health Check

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":   "healthy",
		"calendar": "disconnected",
		"model":    s.modelName,
	}

	if s.calendar != nil && s.calendar.IsAuthenticated() {
		status["calendar"] = "connected"
	}

	respondJSON(w, http.StatusOK, status)
}

// Respond

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserMessage == nil {
		respondError(w, http.StatusUnprocessableEntity, "userMessage is required")
		return
	}
	in := pet.Input{UserMessage: *req.UserMessage, State: req.State}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	out, err := s.brain.Respond(r.Context(), in)
	if err != nil {
		if errors.Is(err, pet.ErrInvalidState) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("failed to generate reply")
		respondError(w, http.StatusBadGateway, "failed to generate reply")
		return
	}

	respondJSON(w, http.StatusOK, out)
}

// Helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
