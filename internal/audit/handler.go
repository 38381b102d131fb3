package audit

import (
	"context"
	"net/http"

	"github.com/stepacademy/course-access/internal/transport"
)

type ServiceAPI interface {
	ListByTarget(ctx context.Context, targetID string, limit, offset int) ([]*Entry, error)
	ListByActor(ctx context.Context, actorID string, limit, offset int) ([]*Entry, error)
	ListAll(ctx context.Context, limit, offset int) ([]*Entry, error)
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

// AdminListAudit handles GET /admin/audit. Optional actor_id or target_id
// query parameters narrow the listing; otherwise the whole log is paged
// newest-first.
func (h *Handler) AdminListAudit(w http.ResponseWriter, r *http.Request) {
	limit, offset := transport.PaginationParams(r)

	var (
		entries []*Entry
		err     error
	)
	switch {
	case r.URL.Query().Get("actor_id") != "":
		entries, err = h.Service.ListByActor(r.Context(), r.URL.Query().Get("actor_id"), limit, offset)
	case r.URL.Query().Get("target_id") != "":
		entries, err = h.Service.ListByTarget(r.Context(), r.URL.Query().Get("target_id"), limit, offset)
	default:
		entries, err = h.Service.ListAll(r.Context(), limit, offset)
	}

	if err != nil {
		h.Logger.Error("failed to list audit entries", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
