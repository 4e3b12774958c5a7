package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/openarcade/playerbase/internal/services"
	"github.com/openarcade/playerbase/internal/storage"
	"github.com/openarcade/playerbase/internal/store"
	"github.com/openarcade/playerbase/types"
)

const (
	maxAvatarBytes  = 4 << 20
	formFieldAvatar = "avatar"
)

// PlayerHandler provides HTTP handlers for player profiles, game
// results, and avatars.
type PlayerHandler struct {
	accountService *services.AccountService
	scoreService   *services.ScoreService
	avatars        *storage.Storage
}

// NewPlayerHandler constructs a handler with the provided dependencies.
// avatars may be nil when no object storage is configured; avatar routes
// then report 503.
func NewPlayerHandler(accountService *services.AccountService, scoreService *services.ScoreService, avatars *storage.Storage) *PlayerHandler {
	return &PlayerHandler{
		accountService: accountService,
		scoreService:   scoreService,
		avatars:        avatars,
	}
}

// PlayerRouter registers player routes on the given router.
func PlayerRouter(
	r chi.Router,
	accountService *services.AccountService,
	scoreService *services.ScoreService,
	avatars *storage.Storage,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewPlayerHandler(accountService, scoreService, avatars)

	r.Route("/me", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Put("/nickname", handler.UpdateNickname)
		r.Post("/results", handler.SubmitResult)
		r.Post("/avatar", handler.UploadAvatar)
	})
	r.Route("/{username}", func(r chi.Router) {
		r.Get("/", handler.GetProfile)
		r.Get("/score", handler.GetHighScore)
		r.Get("/avatar", handler.GetAvatar)
	})
}

// ProfileResponse is the public view of an account.
type ProfileResponse struct {
	Username    string `json:"username"`
	Nickname    string `json:"nickname"`
	HighScore   int64  `json:"high_score"`
	GamesPlayed int64  `json:"games_played"`
}

func (h *PlayerHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	account, err := h.accountService.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch player")
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		Username:    account.Username,
		Nickname:    account.Nickname,
		HighScore:   account.HighScore,
		GamesPlayed: account.GamesPlayed,
	})
}

func (h *PlayerHandler) GetHighScore(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	score, err := h.scoreService.GetHighScore(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch score")
		return
	}

	writeJSON(w, http.StatusOK, types.ScoreEntry{Username: username, HighScore: score})
}

type UpdateNicknameRequest struct {
	Nickname string `json:"nickname"`
}

func (h *PlayerHandler) UpdateNickname(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateNicknameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.accountService.UpdateNickname(r.Context(), username, req.Nickname); err != nil {
		switch {
		case errors.Is(err, store.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "player not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update nickname")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type SubmitResultRequest struct {
	Score int64 `json:"score"`
}

type SubmitResultResponse struct {
	HighScoreUpdated bool `json:"high_score_updated"`
}

// SubmitResult records one finished game: the games-played counter is
// incremented and the score is stored when it meets or beats the current
// high score.
func (h *PlayerHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SubmitResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Score < 0 {
		writeError(w, http.StatusBadRequest, "score must not be negative")
		return
	}

	if err := h.scoreService.IncrementGamesPlayed(r.Context(), username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record result")
		return
	}

	updated, err := h.scoreService.RecordIfHigher(r.Context(), username, req.Score)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record result")
		return
	}

	writeJSON(w, http.StatusOK, SubmitResultResponse{HighScoreUpdated: updated})
}

func (h *PlayerHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "avatar storage is not configured")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile(formFieldAvatar)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing %q file field", formFieldAvatar))
		return
	}
	defer file.Close()

	if header.Size > maxAvatarBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "avatar exceeds size limit")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "avatar must be an image")
		return
	}

	key := "avatars/" + username
	if err := h.avatars.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}
	if err := h.accountService.UpdateAvatarKey(r.Context(), username, key); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "uploaded"})
}

func (h *PlayerHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "avatar storage is not configured")
		return
	}

	account, err := h.accountService.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch player")
		return
	}
	if account.AvatarKey == "" {
		writeError(w, http.StatusNotFound, "no avatar uploaded")
		return
	}

	reader, err := h.avatars.Get(r.Context(), account.AvatarKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch avatar")
		return
	}
	defer reader.Close()

	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}
