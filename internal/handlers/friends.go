package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/openarcade/playerbase/internal/services"
	"github.com/openarcade/playerbase/internal/store"
)

// FriendHandler provides HTTP handlers for the friendship lifecycle.
type FriendHandler struct {
	friendshipService *services.FriendshipService
}

func NewFriendHandler(friendshipService *services.FriendshipService) *FriendHandler {
	return &FriendHandler{friendshipService: friendshipService}
}

// FriendRouter registers friendship routes on the given router. All
// routes require authentication.
func FriendRouter(r chi.Router, friendshipService *services.FriendshipService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewFriendHandler(friendshipService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListFriends)
	r.Post("/requests", handler.SendRequest)
	r.Get("/requests", handler.ListPending)
	r.Post("/requests/{username}/accept", handler.Accept)
	r.Post("/requests/{username}/decline", handler.Decline)
	r.Get("/{username}", handler.CheckFriendship)
}

type SendFriendRequestRequest struct {
	Username string `json:"username"`
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SendFriendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.friendshipService.SendRequest(r.Context(), username, req.Username); err != nil {
		switch {
		case errors.Is(err, store.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "player not found")
		case errors.Is(err, store.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "friendship already exists")
		default:
			writeError(w, http.StatusInternalServerError, "failed to send friend request")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "request_sent"})
}

func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.friendshipService.Accept, "accepted")
}

func (h *FriendHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.friendshipService.Decline, "declined")
}

func (h *FriendHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, actor, counterpart string) error,
	status string,
) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	counterpart := strings.TrimSpace(chi.URLParam(r, "username"))
	if counterpart == "" {
		writeError(w, http.StatusBadRequest, "missing username")
		return
	}

	if err := op(r.Context(), username, counterpart); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "friend request not found")
		case errors.Is(err, store.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "friend request is not pending")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update friend request")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// FriendListResponse carries usernames related to the caller.
type FriendListResponse struct {
	Usernames []string `json:"usernames"`
}

func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	friends, err := h.friendshipService.ListFriends(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list friends")
		return
	}

	writeJSON(w, http.StatusOK, FriendListResponse{Usernames: friends})
}

func (h *FriendHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var pending []string
	switch direction := strings.TrimSpace(r.URL.Query().Get("direction")); direction {
	case "", "incoming":
		pending, err = h.friendshipService.ListPendingIncoming(r.Context(), username)
	case "outgoing":
		pending, err = h.friendshipService.ListPendingOutgoing(r.Context(), username)
	default:
		writeError(w, http.StatusBadRequest, "direction must be incoming or outgoing")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list pending requests")
		return
	}

	writeJSON(w, http.StatusOK, FriendListResponse{Usernames: pending})
}

// CheckFriendshipResponse reports whether two players are friends.
type CheckFriendshipResponse struct {
	Friends bool `json:"friends"`
}

func (h *FriendHandler) CheckFriendship(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	other := strings.TrimSpace(chi.URLParam(r, "username"))
	if other == "" {
		writeError(w, http.StatusBadRequest, "missing username")
		return
	}

	friends, err := h.friendshipService.AreFriends(r.Context(), username, other)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check friendship")
		return
	}

	writeJSON(w, http.StatusOK, CheckFriendshipResponse{Friends: friends})
}
