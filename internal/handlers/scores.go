package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/openarcade/playerbase/internal/services"
	"github.com/openarcade/playerbase/types"
)

// ScoreHandler provides HTTP handlers for leaderboard queries.
type ScoreHandler struct {
	scoreService *services.ScoreService
}

func NewScoreHandler(scoreService *services.ScoreService) *ScoreHandler {
	return &ScoreHandler{scoreService: scoreService}
}

// LeaderboardRouter registers leaderboard routes on the given router.
func LeaderboardRouter(r chi.Router, scoreService *services.ScoreService) {
	handler := NewScoreHandler(scoreService)
	r.Get("/", handler.Leaderboard)
}

// LeaderboardResponse carries ranked score entries, best first.
type LeaderboardResponse struct {
	Entries []types.ScoreEntry `json:"entries"`
}

func (h *ScoreHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.scoreService.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, LeaderboardResponse{Entries: entries})
}
