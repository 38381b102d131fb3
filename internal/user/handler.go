package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/stepacademy/course-access/internal/auth"
	"github.com/stepacademy/course-access/internal/transport"
)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*User, error)
	GetByID(ctx context.Context, userID string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, error)
	Update(ctx context.Context, actorID, userID string, dto UpdateDTO) (*User, error)
	Delete(ctx context.Context, actorID, userID string) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// Register handles public account self-registration.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			h.WriteError(w, http.StatusConflict, "email already registered")
		default:
			var vErr ValidationError
			if errors.As(err, &vErr) {
				h.WriteError(w, http.StatusBadRequest, vErr.Error())
				return
			}
			h.Logger.Error("registration failed", "error", err)
			h.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.WriteJSON(w, http.StatusCreated, u)
}

// GetMe returns the authenticated user's own profile.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.Service.GetByID(r.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		h.Logger.Error("failed to load profile", "error", err, "user_id", actor.ID)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := transport.PaginationParams(r)

	users, err := h.Service.List(r.Context(), limit, offset)
	if err != nil {
		h.Logger.Error("failed to list users", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) AdminGetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	u, err := h.Service.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		h.Logger.Error("failed to get user", "error", err, "user_id", userID)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID := chi.URLParam(r, "userID")

	var dto UpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Service.Update(r.Context(), actor.ID, userID, dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			h.WriteError(w, http.StatusNotFound, "user not found")
		default:
			var vErr ValidationError
			if errors.As(err, &vErr) {
				h.WriteError(w, http.StatusBadRequest, vErr.Error())
				return
			}
			h.Logger.Error("failed to update user", "error", err, "user_id", userID)
			h.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID := chi.URLParam(r, "userID")

	if err := h.Service.Delete(r.Context(), actor.ID, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		h.Logger.Error("failed to delete user", "error", err, "user_id", userID)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
