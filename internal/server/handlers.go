package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mixtape-labs/mixtape/internal/models"
	"github.com/mixtape-labs/mixtape/internal/services"
	"github.com/mixtape-labs/mixtape/internal/shared"
)

type chatRequest struct {
	Message string                    `json:"message"`
	History []models.ConversationTurn `json:"history"`
}

type chatResponse struct {
	Message      string `json:"message"`
	Ready        bool   `json:"readyToCreate"`
	PlaylistName string `json:"playlistName,omitempty"`
	SongCount    int    `json:"songCount,omitempty"`
}

type createRequest struct {
	PlaylistName  string `json:"playlistName"`
	Description   string `json:"description"`
	NumberOfSongs int    `json:"numberOfSongs"`
	UserRequest   string `json:"userRequest"`
}

type createResponse struct {
	Success  bool                    `json:"success"`
	Playlist *models.CreatedPlaylist `json:"playlist"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := s.engine.Chat(r.Context(), req.Message, req.History)
	if err != nil {
		s.fail(w, err)
		return
	}

	resp := chatResponse{Message: result.Reply, Ready: result.Ready}
	if result.Ready {
		resp.PlaylistName = result.Pending.Name
		resp.SongCount = result.Pending.SongCount
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pending := &models.PendingCreation{
		Name:        req.PlaylistName,
		SongCount:   req.NumberOfSongs,
		Request:     req.UserRequest,
		Description: req.Description,
	}
	if err := pending.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	playlist, err := s.engine.Create(r.Context(), pending, nil)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createResponse{Success: true, Playlist: playlist})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.catalog.Profile(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// fail maps a pipeline error to an HTTP response.
//
// Upstream statuses a client can act on pass through (401 reauthenticate, 403,
// 404, 429 back off); other upstream failures are 502 and local ones 500.
func (s *Server) fail(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)

	if errors.Is(err, shared.ErrNotAuthenticated) || errors.Is(err, shared.ErrRefreshFailed) {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if se, ok := services.AsStatusError(err); ok {
		switch se.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusTooManyRequests:
			writeError(w, se.Status, err.Error())
		default:
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
