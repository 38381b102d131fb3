package notification

import (
	"context"
	"net/http"

	"github.com/stepacademy/course-access/internal/auth"
	"github.com/stepacademy/course-access/internal/transport"
)

type ServiceAPI interface {
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]*Request, error)
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

// GetMyNotifications handles GET /users/me/notifications.
func (h *Handler) GetMyNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, offset := transport.PaginationParams(r)
	list, err := h.Service.ListForUser(r.Context(), user.ID, limit, offset)
	if err != nil {
		h.Logger.Error("failed to list notifications", "error", err, "user_id", user.ID)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"notifications": list})
}
