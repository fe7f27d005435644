package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/lucylow/quaternion-sub009/internal/auth"
	"github.com/lucylow/quaternion-sub009/internal/service"
)

// MatchHandler handles match lifecycle endpoints.
type MatchHandler struct {
	matchSvc *service.MatchService
	wsHub    *Hub
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(matchSvc *service.MatchService, wsHub *Hub) *MatchHandler {
	return &MatchHandler{matchSvc: matchSvc, wsHub: wsHub}
}

// CreateMatch handles POST /api/v1/matches
func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		Name          string `json:"name"`
		DisplayName   string `json:"display_name,omitempty"`
		Seed          int64  `json:"seed,omitempty"`
		BotDifficulty string `json:"bot_difficulty,omitempty"`
		BotOnly       bool   `json:"bot_only,omitempty"`
		VsHuman       bool   `json:"vs_human,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	switch req.BotDifficulty {
	case "", "easy", "medium", "hard":
	default:
		writeError(w, http.StatusBadRequest, "difficulty must be easy, medium, or hard")
		return
	}

	match, err := h.matchSvc.CreateMatch(r.Context(), req.Name, userID, req.DisplayName, req.Seed, req.BotDifficulty, req.BotOnly, req.VsHuman)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, match)
}

// JoinMatch handles POST /api/v1/matches/{id}/join
func (h *MatchHandler) JoinMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		DisplayName string `json:"display_name,omitempty"`
	}
	// The body is optional; joining without a display name is fine.
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	match, err := h.matchSvc.JoinMatch(r.Context(), matchID, userID, req.DisplayName)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMatchNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrMatchNotWaiting) {
			status = http.StatusBadRequest
		} else if errors.Is(err, service.ErrMatchFull) || errors.Is(err, service.ErrAlreadyJoined) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// ListMatches handles GET /api/v1/matches
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matchSvc.ListMatches(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if matches == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// GetMatch handles GET /api/v1/matches/{id}
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	match, err := h.matchSvc.GetMatch(r.Context(), matchID)
	if err != nil {
		if errors.Is(err, service.ErrMatchNotFound) {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// StartMatch handles POST /api/v1/matches/{id}/start
func (h *MatchHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())

	match, err := h.matchSvc.StartMatch(r.Context(), matchID, userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMatchNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrMatchNotWaiting) {
			status = http.StatusBadRequest
		} else if errors.Is(err, service.ErrNotReady) {
			status = http.StatusConflict
		} else if errors.Is(err, service.ErrNotCreator) {
			status = http.StatusForbidden
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// StopMatch handles POST /api/v1/matches/{id}/stop
func (h *MatchHandler) StopMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())

	if err := h.matchSvc.StopMatch(r.Context(), matchID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMatchNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrMatchNotActive) {
			status = http.StatusBadRequest
		} else if errors.Is(err, service.ErrNotCreator) {
			status = http.StatusForbidden
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// DeleteMatch handles DELETE /api/v1/matches/{id}
func (h *MatchHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())

	if err := h.matchSvc.DeleteMatch(r.Context(), matchID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMatchNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrMatchNotWaiting) {
			status = http.StatusBadRequest
		} else if errors.Is(err, service.ErrNotCreator) {
			status = http.StatusForbidden
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetReplay handles GET /api/v1/matches/{id}/replay?from=0&to=-1
func (h *MatchHandler) GetReplay(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")

	from := parseRangeParam(r.URL.Query().Get("from"), 0)
	to := parseRangeParam(r.URL.Query().Get("to"), -1)

	frames, err := h.matchSvc.Replay(r.Context(), matchID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if frames == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, frames)
}

// GetSnapshot handles GET /api/v1/matches/{id}/snapshot
func (h *MatchHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")

	snap, err := h.matchSvc.Resync(r.Context(), matchID)
	if err != nil {
		if errors.Is(err, service.ErrMatchNotActive) {
			writeError(w, http.StatusNotFound, "no snapshot available")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(snap)
}

func parseRangeParam(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
